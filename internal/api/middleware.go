package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"chat-widget-demo/engine/pkg/errors"
	"chat-widget-demo/engine/pkg/jwt"
)

// WidgetAuthMiddleware validates the embed token and exposes the visitor
// namespace to downstream handlers
func WidgetAuthMiddleware(jwtService *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if token == "" || token == header {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"code": errors.CodeInvalidToken, "message": "embed token required"},
			})
			return
		}

		claims, err := jwtService.ValidateToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"code": errors.CodeInvalidToken, "message": "embed token rejected"},
			})
			return
		}

		c.Set("visitorId", claims.VisitorID)
		c.Set("widgetOrigin", claims.Origin)
		c.Set("embedToken", token)
		c.Next()
	}
}

// AdminAuthMiddleware guards administrative endpoints with a bcrypt-checked
// key. No configured hash means the endpoints are disabled outright.
func AdminAuthMiddleware(adminKeyHash string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminKeyHash == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": gin.H{"code": "ADMIN_DISABLED", "message": "administrative API is not configured"},
			})
			return
		}

		key := c.GetHeader("X-Admin-Key")
		if key == "" || bcrypt.CompareHashAndPassword([]byte(adminKeyHash), []byte(key)) != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"code": "ADMIN_KEY_REJECTED", "message": "invalid administrative key"},
			})
			return
		}

		c.Next()
	}
}
