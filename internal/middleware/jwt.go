package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/workhabits-api/internal/models"
	appErrors "github.com/noah-isme/workhabits-api/pkg/errors"
	"github.com/noah-isme/workhabits-api/pkg/logger"
	"github.com/noah-isme/workhabits-api/pkg/response"
)

// ContextUserKey is the gin context key storing JWT claims.
const ContextUserKey = "currentUser"

type tokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

// JWT protects routes by requiring a valid access token. The token subject
// becomes the owner identity for every record the request touches.
func JWT(validator tokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		claims, err := validator.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, claims)
		c.Set(logger.ContextUserIDKey, claims.UserID)
		c.Next()
	}
}

// CurrentOwner returns the authenticated owner id, if any.
func CurrentOwner(c *gin.Context) (string, bool) {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return "", false
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok || claims == nil || claims.UserID == "" {
		return "", false
	}
	return claims.UserID, true
}
