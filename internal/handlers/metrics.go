package handlers

import (
	"time"

	"gorm.io/gorm"

	"github.com/huangang/taskboard/internal/metrics"
	"github.com/huangang/taskboard/internal/services"
)

var startTime = time.Now()

// RegisterRuntimeGauges exposes uptime, connection pool, SSE and queue state
// on m. The values are read at scrape time.
func RegisterRuntimeGauges(m *metrics.Metrics, db *gorm.DB, activity *services.ActivityService) {
	m.Gauge("uptime_seconds", "Time since server start in seconds", func() float64 {
		return time.Since(startTime).Seconds()
	})
	m.Gauge("sse_active_clients", "Number of active SSE connections", func() float64 {
		return float64(activity.Hub().ClientCount())
	})
	m.Gauge("queue_async_enabled", "Whether activity jobs go through the async queue (1=yes, 0=no)", func() float64 {
		if activity.QueueMode() == "async" {
			return 1
		}
		return 0
	})

	if db == nil {
		return
	}
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	m.Gauge("db_open_connections", "Number of open identity store connections", func() float64 {
		return float64(sqlDB.Stats().OpenConnections)
	})
	m.Gauge("db_in_use_connections", "Number of in-use identity store connections", func() float64 {
		return float64(sqlDB.Stats().InUse)
	})
}
