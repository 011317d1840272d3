package http

import (
	"github.com/gin-gonic/gin"

	"coursechat/internal/bootstrap"
	"coursechat/internal/transport/http/handler"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	queryHandler := handler.NewQueryHandler(app.QueryService)
	coursesHandler := handler.NewCoursesHandler(app.QueryService)
	ingestHandler := handler.NewIngestHandler(app.IngestService)

	api := router.Group("/api")
	api.POST("/query", queryHandler.Query)
	api.POST("/sessions", queryHandler.CreateSession)
	api.GET("/courses", coursesHandler.Stats)
	api.POST("/documents", ingestHandler.IngestDocument)
	api.POST("/documents/upload", ingestHandler.IngestFile)

	return router
}
