package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huangang/taskboard/internal/policy"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestObserveDecision(t *testing.T) {
	m := New()
	m.ObserveDecision(policy.EntityProject, policy.ActionView, true)
	m.ObserveDecision(policy.EntityProject, policy.ActionView, false)
	m.ObserveDecision(policy.EntityProject, policy.ActionView, false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuthzDecisions.WithLabelValues("project", "view", "allow")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.AuthzDecisions.WithLabelValues("project", "view", "deny")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveDecision(policy.EntityTask, policy.ActionDelete, true)
		m.DegradedRead("tasks")
		m.CascadeDelete(false)
		m.ActivityEvent("task.updated", "sync")
		m.Gauge("x", "x", func() float64 { return 1 })
	})
}

func TestCounters(t *testing.T) {
	m := New()
	m.DegradedRead("projects")
	m.CascadeDelete(true)
	m.CascadeDelete(false)
	m.ActivityEvent("project.created", "async")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.DegradedReads.WithLabelValues("projects")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CascadeDeletes.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CascadeDeletes.WithLabelValues("aborted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActivityEvents.WithLabelValues("project.created", "async")))
}

func TestMiddlewareAndHandler(t *testing.T) {
	m := New()
	m.Gauge("sse_clients", "Connected SSE clients", func() float64 { return 3 })

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/api/projects/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/metrics", gin.WrapH(m.Handler()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/projects/abc", nil))
	require.Equal(t, http.StatusNoContent, w.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/projects/:id", "204")))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, "taskboard_sse_clients 3"))
	assert.True(t, strings.Contains(body, "taskboard_http_requests_total"))
}
