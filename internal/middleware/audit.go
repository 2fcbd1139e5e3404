package middleware

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/workhabits-api/internal/models"
)

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// Audit records an audit log after successful authenticated requests. Write
// failures are logged and never change the response.
func Audit(writer auditWriter, action, resource string, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		start := time.Now().UTC()
		c.Next()

		if writer == nil || c.Writer.Status() >= 400 {
			return
		}
		owner, ok := CurrentOwner(c)
		if !ok {
			return
		}

		body, _ := json.Marshal(map[string]interface{}{
			"path":    c.FullPath(),
			"method":  c.Request.Method,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).Milliseconds(),
		})

		entry := models.NewAuditLog(owner, action, resource, c.Param("id"), body, RequestAuditContext(c))
		if err := writer.CreateAuditLog(c.Request.Context(), entry); err != nil {
			logger.Warn("audit log write failed", zap.String("action", action), zap.Error(err))
		}
	}
}

// RequestAuditContext captures the caller details stored with audit entries.
func RequestAuditContext(c *gin.Context) models.AuditContext {
	return models.AuditContext{IPAddress: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
}
