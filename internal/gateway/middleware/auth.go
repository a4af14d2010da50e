package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"dinendash-system/internal/utils"
)

// Context keys set by JWTAuth.
const (
	UserIDKey   = "user_id"
	UserNameKey = "user_name"
)

type TokenParser interface {
	ParseToken(token string) (*utils.Claims, error)
}

// JWTAuth requires a bearer token and stores the caller's identity on the context.
func JWTAuth(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Authorization token required",
			})
			return
		}

		claims, err := tokens.ParseToken(strings.TrimSpace(raw))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Invalid or expired token",
			})
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(UserNameKey, claims.Name)
		c.Next()
	}
}
