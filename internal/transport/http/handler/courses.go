package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"coursechat/internal/app"
	"coursechat/internal/transport/http/response"
)

type CoursesHandler struct {
	queryService *app.QueryService
}

func NewCoursesHandler(queryService *app.QueryService) *CoursesHandler {
	return &CoursesHandler{queryService: queryService}
}

// Stats reports the indexed course count and titles.
func (h *CoursesHandler) Stats(c *gin.Context) {
	stats, err := h.queryService.GetCourseStats(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "read course stats failed")
		return
	}
	response.OK(c, stats)
}
