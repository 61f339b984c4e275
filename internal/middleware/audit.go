package middleware

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/SiPilip/gathering-api/internal/models"
	"github.com/SiPilip/gathering-api/pkg/logger"
)

const auditResourceKey = "audit_resource_id"

// AuditWriter persists audit trail entries.
type AuditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// SetAuditResource records the id of a resource created by the current request
// so the audit entry can reference it.
func SetAuditResource(c *gin.Context, id string) {
	if c == nil || id == "" {
		return
	}
	c.Set(auditResourceKey, id)
}

// AuditResource returns the id stored by SetAuditResource.
func AuditResource(c *gin.Context) string {
	if c == nil {
		return ""
	}
	if value, ok := c.Get(auditResourceKey); ok {
		if id, ok := value.(string); ok {
			return id
		}
	}
	return ""
}

// Audit creates a middleware that records audit logs after successful requests.
// The resource id is taken from the route parameter named param, falling back
// to the id set through SetAuditResource.
func Audit(repo AuditWriter, log *zap.Logger, action, resource, param string) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		start := time.Now().UTC()
		c.Next()

		if repo == nil || c.Writer.Status() >= 400 {
			return
		}

		var userID *string
		if claims, ok := c.Get(ContextUserKey); ok {
			if user, ok := claims.(*models.JWTClaims); ok {
				userID = &user.UserID
			}
		}

		var resourceID *string
		if param != "" {
			if id := c.Param(param); id != "" {
				resourceID = &id
			}
		}
		if id := AuditResource(c); id != "" {
			resourceID = &id
		}

		body, _ := json.Marshal(map[string]interface{}{
			"path":    c.FullPath(),
			"method":  c.Request.Method,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).Milliseconds(),
		})

		entry := &models.AuditLog{
			UserID:     userID,
			Action:     action,
			Resource:   resource,
			ResourceID: resourceID,
			NewValues:  body,
			IPAddress:  c.ClientIP(),
			UserAgent:  c.GetHeader("User-Agent"),
		}
		if err := repo.CreateAuditLog(c.Request.Context(), entry); err != nil {
			logger.WithRequest(c.Request.Context(), log).Warn("audit log write failed",
				zap.String("action", action),
				zap.Error(err),
			)
		}
	}
}
