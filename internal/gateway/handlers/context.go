package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"dinendash-system/internal/gateway/middleware"
)

const requestTimeout = 15 * time.Second

func requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), requestTimeout)
}

func currentUser(c *gin.Context) string {
	return c.GetString(middleware.UserIDKey)
}
