package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/huangang/taskboard/internal/services"
	"github.com/huangang/taskboard/pkg/response"
)

const healthTimeout = 2 * time.Second

// Pinger is a collaborator whose reachability is reported by the health
// endpoints.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports the state of the identity store, the document
// store, the activity queue and the SSE hub.
type HealthHandler struct {
	db       *gorm.DB
	store    Pinger
	activity *services.ActivityService
}

func NewHealthHandler(db *gorm.DB, store Pinger, activity *services.ActivityService) *HealthHandler {
	return &HealthHandler{db: db, store: store, activity: activity}
}

// Liveness is the unauthenticated probe.
// GET /health
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(200, gin.H{"status": "ok", "service": "taskboard"})
}

// CheckHealth returns the health status of all subsystems.
// GET /api/admin/health
func (h *HealthHandler) CheckHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	overall := "healthy"

	dbStatus := "ok"
	if err := h.pingDB(ctx); err != nil {
		dbStatus = "error"
		overall = "degraded"
	}

	storeStatus := "ok"
	if err := h.store.Ping(ctx); err != nil {
		storeStatus = "error"
		overall = "degraded"
	}

	response.Success(c, gin.H{
		"status": overall,
		"components": gin.H{
			"database":       dbStatus,
			"document_store": storeStatus,
			"queue_mode":     h.activity.QueueMode(),
			"sse_clients":    h.activity.Hub().ClientCount(),
		},
		"checked_at": time.Now().UTC(),
	})
}

func (h *HealthHandler) pingDB(ctx context.Context) error {
	sqlDB, err := h.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
