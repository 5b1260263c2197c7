package middleware

import (
	"bytes"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/huangang/taskboard/pkg/logger"
)

const auditBodyLimit = 2000

// AuditLog writes one "audit" log line per mutating request under the
// group it is installed on, with secrets masked in the captured body.
func AuditLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodDelete:
		default:
			c.Next()
			return
		}

		var body string
		if c.Request.Body != nil {
			raw, _ := io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewReader(raw))
			body = maskSensitiveFields(string(raw))
			if len(body) > auditBodyLimit {
				body = body[:auditBodyLimit] + "...[truncated]"
			}
		}

		c.Next()

		status := c.Writer.Status()
		event := logger.Info()
		if status >= http.StatusBadRequest {
			event = logger.Warn()
		}
		event.
			Str("component", "audit").
			Uint("user_id", GetUserID(c)).
			Str("method", c.Request.Method).
			Str("route", c.FullPath()).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Str("ip", c.ClientIP()).
			Str("body", body).
			Msg("audit")
	}
}

// maskSensitiveFields replaces the string values of credential fields.
func maskSensitiveFields(body string) string {
	return logger.MaskJSON(body)
}
