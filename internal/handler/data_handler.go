package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/attendance-tracker/internal/service"
	"github.com/noah-isme/attendance-tracker/pkg/response"
)

type dataService interface {
	ClearAll(ctx context.Context, req service.ClearDataRequest) error
}

// DataHandler exposes the destructive data endpoints.
type DataHandler struct {
	service dataService
}

// NewDataHandler constructs a data handler.
func NewDataHandler(svc dataService) *DataHandler {
	return &DataHandler{service: svc}
}

// Clear godoc
// @Summary Delete every subject and calendar event
// @Tags Data
// @Accept json
// @Produce json
// @Param payload body service.ClearDataRequest true "Confirmation"
// @Success 204
// @Failure 428 {object} response.Envelope
// @Router /data [delete]
func (h *DataHandler) Clear(c *gin.Context) {
	var req service.ClearDataRequest
	// An empty body, chunked or not, is an unconfirmed request rather than a bad one.
	if body := c.Request.Body; body != nil && body != http.NoBody {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			response.Error(c, invalidPayload(err))
			return
		}
	}
	if err := h.service.ClearAll(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
