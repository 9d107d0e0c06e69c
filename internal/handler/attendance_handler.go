package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/attendance-tracker/internal/models"
	"github.com/noah-isme/attendance-tracker/internal/service"
	"github.com/noah-isme/attendance-tracker/pkg/response"
)

type attendanceService interface {
	MarkAttendance(ctx context.Context, id string, req service.MarkAttendanceRequest) (*models.Subject, error)
	Projection(id string) (*models.SubjectSummary, error)
	Overview() service.AttendanceOverview
}

// AttendanceHandler exposes attendance marking and the derived figures.
type AttendanceHandler struct {
	service attendanceService
}

// NewAttendanceHandler constructs an attendance handler.
func NewAttendanceHandler(svc attendanceService) *AttendanceHandler {
	return &AttendanceHandler{service: svc}
}

// Mark godoc
// @Summary Record a held class
// @Tags Attendance
// @Accept json
// @Produce json
// @Param id path string true "Subject ID"
// @Param payload body service.MarkAttendanceRequest true "Attendance payload"
// @Success 200 {object} response.Envelope
// @Success 204
// @Failure 503 {object} response.Envelope
// @Router /subjects/{id}/attendance [post]
func (h *AttendanceHandler) Mark(c *gin.Context) {
	var req service.MarkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	subject, err := h.service.MarkAttendance(c.Request.Context(), c.Param("id"), req)
	respondMutation(c, subject, err)
}

// Projection godoc
// @Summary Subject attendance projection
// @Tags Attendance
// @Produce json
// @Param id path string true "Subject ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /subjects/{id}/projection [get]
func (h *AttendanceHandler) Projection(c *gin.Context) {
	summary, err := h.service.Projection(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary)
}

// Overall godoc
// @Summary Overall attendance with per-subject projections
// @Tags Attendance
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /attendance/overall [get]
func (h *AttendanceHandler) Overall(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.Overview())
}
