package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/attendance-tracker/internal/models"
	"github.com/noah-isme/attendance-tracker/internal/service"
	"github.com/noah-isme/attendance-tracker/pkg/response"
)

type calendarService interface {
	All() models.EventsByDate
	EventsOn(date string) ([]models.CalendarEvent, error)
	AddEvent(ctx context.Context, date string, req service.CreateEventRequest) (*models.CalendarEvent, error)
	ToggleCompletion(ctx context.Context, date, id string) (*models.CalendarEvent, error)
	SweepRetention(ctx context.Context) (service.RetentionResult, error)
}

// CalendarHandler serves calendar event endpoints.
type CalendarHandler struct {
	service calendarService
}

// NewCalendarHandler constructs a calendar handler.
func NewCalendarHandler(svc calendarService) *CalendarHandler {
	return &CalendarHandler{service: svc}
}

// List godoc
// @Summary List every calendar event keyed by date
// @Tags Calendar
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /calendar/events [get]
func (h *CalendarHandler) List(c *gin.Context) {
	events := h.service.All()
	response.JSON(c, http.StatusOK, events, map[string]interface{}{"total": events.Count()})
}

// ListByDate godoc
// @Summary List events of one date
// @Tags Calendar
// @Produce json
// @Param date path string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /calendar/events/{date} [get]
func (h *CalendarHandler) ListByDate(c *gin.Context) {
	events, err := h.service.EventsOn(c.Param("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events)
}

// Create godoc
// @Summary Add an event to a date
// @Tags Calendar
// @Accept json
// @Produce json
// @Param date path string true "Date (YYYY-MM-DD)"
// @Param payload body service.CreateEventRequest true "Event payload"
// @Success 201 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /calendar/events/{date} [post]
func (h *CalendarHandler) Create(c *gin.Context) {
	var req service.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	event, err := h.service.AddEvent(c.Request.Context(), c.Param("date"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, event)
}

// Toggle godoc
// @Summary Toggle completion of an event
// @Tags Calendar
// @Produce json
// @Param date path string true "Date (YYYY-MM-DD)"
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Success 204
// @Router /calendar/events/{date}/{id}/toggle [post]
func (h *CalendarHandler) Toggle(c *gin.Context) {
	event, err := h.service.ToggleCompletion(c.Request.Context(), c.Param("date"), c.Param("id"))
	respondMutation(c, event, err)
}

// Retention godoc
// @Summary Run the completed event retention sweep now
// @Tags Calendar
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /calendar/retention [post]
func (h *CalendarHandler) Retention(c *gin.Context) {
	result, err := h.service.SweepRetention(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}
