package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"coursechat/internal/app"
	"coursechat/internal/transport/http/response"
)

type QueryHandler struct {
	queryService *app.QueryService
}

type QueryRequest struct {
	Query     string `json:"query" binding:"required"`
	SessionID string `json:"session_id"`
}

func NewQueryHandler(queryService *app.QueryService) *QueryHandler {
	return &QueryHandler{queryService: queryService}
}

// Query answers one user question. A request without a session id gets a new
// session, returned in the result so the client can continue the thread.
func (h *QueryHandler) Query(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.queryService.HandleQuery(c.Request.Context(), app.QueryInput{
		SessionID: req.SessionID,
		Query:     req.Query,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrQueryEmpty):
			response.Error(c, http.StatusBadRequest, response.CodeEmptyQuery, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "query failed")
		}
		return
	}

	response.OK(c, result)
}

func (h *QueryHandler) CreateSession(c *gin.Context) {
	id, err := h.queryService.CreateSession(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "create session failed")
		return
	}
	response.OK(c, gin.H{"session_id": id})
}
