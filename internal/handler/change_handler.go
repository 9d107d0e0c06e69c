package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/attendance-tracker/internal/models"
)

const defaultHeartbeat = 25 * time.Second

type changeSource interface {
	Subscribe() (<-chan models.Change, func())
}

// ChangeHandler streams store changes as server-sent events.
type ChangeHandler struct {
	source    changeSource
	heartbeat time.Duration
}

// NewChangeHandler constructs a change handler. A non-positive heartbeat uses 25s.
func NewChangeHandler(source changeSource, heartbeat time.Duration) *ChangeHandler {
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	return &ChangeHandler{source: source, heartbeat: heartbeat}
}

// Stream godoc
// @Summary Stream store changes
// @Description Server-sent events; each "change" event carries a JSON change record.
// @Tags Changes
// @Produce text/event-stream
// @Success 200
// @Router /changes [get]
func (h *ChangeHandler) Stream(c *gin.Context) {
	changes, unsubscribe := h.source.Subscribe()
	defer unsubscribe()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-store")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case change, ok := <-changes:
			if !ok {
				return false
			}
			c.SSEvent("change", change)
			return true
		case <-ticker.C:
			c.SSEvent("heartbeat", gin.H{"at": time.Now().UTC()})
			return true
		}
	})
}
