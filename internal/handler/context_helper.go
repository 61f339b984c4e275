package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/SiPilip/gathering-api/internal/middleware"
	"github.com/SiPilip/gathering-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// actorID returns the authenticated admin id, or an empty string for
// anonymous requests.
func actorID(c *gin.Context) string {
	if claims := claimsFromContext(c); claims != nil {
		return claims.UserID
	}
	return ""
}
