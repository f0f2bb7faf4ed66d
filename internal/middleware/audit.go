package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-portal-api/internal/service"
)

type auditRecorder interface {
	Record(ctx context.Context, entry service.AuditEntry)
}

// Audit records an audit entry after each successful request on the route.
// The :id route param, when present, becomes the resource id.
func Audit(recorder auditRecorder, action, resource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if recorder == nil || c.Writer.Status() >= 400 {
			return
		}

		var userID string
		if claims := Claims(c); claims != nil {
			userID = claims.UserID
		}
		recorder.Record(c.Request.Context(), service.AuditEntry{
			UserID:     userID,
			Action:     action,
			Resource:   resource,
			ResourceID: c.Param("id"),
			Details: map[string]interface{}{
				"path":       c.FullPath(),
				"method":     c.Request.Method,
				"status":     c.Writer.Status(),
				"latency_ms": time.Since(start).Milliseconds(),
			},
			IP:        c.ClientIP(),
			UserAgent: c.GetHeader("User-Agent"),
		})
	}
}
