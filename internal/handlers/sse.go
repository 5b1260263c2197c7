package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/huangang/taskboard/internal/middleware"
	"github.com/huangang/taskboard/internal/services"
	"github.com/huangang/taskboard/pkg/logger"
)

const sseKeepAlive = 25 * time.Second

// SSEHandler streams change events. Authentication is done by
// middleware.StreamAuthRequired; each event is filtered against the
// subscriber's principal by the hub.
type SSEHandler struct {
	hub       *services.SSEHub
	keepAlive time.Duration
}

func NewSSEHandler(hub *services.SSEHub) *SSEHandler {
	return &SSEHandler{hub: hub, keepAlive: sseKeepAlive}
}

// Stream handles GET /api/events
func (h *SSEHandler) Stream(c *gin.Context) {
	p := middleware.GetPrincipal(c)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	clientID := uuid.New().String()
	events := h.hub.Subscribe(clientID, p)
	defer h.hub.Unsubscribe(clientID)

	logger.Info().Str("client_id", clientID).Uint("user_id", p.ID).Int("total", h.hub.ClientCount()).Msg("SSE client connected")

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	// flush headers so clients see the stream open before the first event
	c.Writer.WriteHeader(200)
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-events:
			if !ok {
				return false
			}
			data, err := json.Marshal(event)
			if err != nil {
				logger.Error().Err(err).Msg("SSE marshal error")
				return true
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
			return true
		case <-ticker.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			return true
		case <-c.Request.Context().Done():
			logger.Info().Str("client_id", clientID).Msg("SSE client disconnected")
			return false
		}
	})
}
