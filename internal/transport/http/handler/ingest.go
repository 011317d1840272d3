package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"coursechat/internal/app"
	"coursechat/internal/chunker"
	"coursechat/internal/transport/http/response"
)

type IngestHandler struct {
	ingestService *app.IngestService
}

type IngestDocumentRequest struct {
	Content string `json:"content" binding:"required"`
	Title   string `json:"title"`
}

func NewIngestHandler(ingestService *app.IngestService) *IngestHandler {
	return &IngestHandler{ingestService: ingestService}
}

// IngestDocument indexes a transcript posted as JSON text.
func (h *IngestHandler) IngestDocument(c *gin.Context) {
	var req IngestDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	title := req.Title
	if title == "" {
		title = "Untitled Course"
	}

	result, err := h.ingestService.IngestDocument(c.Request.Context(), req.Content, title)
	if err != nil {
		switch {
		case errors.Is(err, chunker.ErrEmptyDocument):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "ingest document failed")
		}
		return
	}

	response.OK(c, result)
}

// IngestFile indexes an uploaded transcript file. Plain text, markdown and
// PDF uploads are accepted, dispatched on the filename extension.
func (h *IngestHandler) IngestFile(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing file upload")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "open upload failed")
		return
	}
	defer file.Close()

	result, err := h.ingestService.IngestReader(c.Request.Context(), file, fileHeader.Filename)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrUnsupportedDocument):
			response.Error(c, http.StatusBadRequest, response.CodeUnsupportedDocument, err.Error())
		case errors.Is(err, chunker.ErrEmptyDocument):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "ingest file failed")
		}
		return
	}

	response.OK(c, result)
}
