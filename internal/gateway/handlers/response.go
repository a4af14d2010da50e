package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dinendash-system/internal/apperrors"
)

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

func successResponse(message string, data interface{}) APIResponse {
	return APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	}
}

func errorResponse(message string) APIResponse {
	return APIResponse{
		Success: false,
		Message: message,
	}
}

func successWithMetaResponse(message string, data interface{}, meta interface{}) APIResponse {
	return APIResponse{
		Success: true,
		Message: message,
		Data:    data,
		Meta:    meta,
	}
}

// writeError answers with the status mapped from err's code. Internal
// failures are logged and their detail withheld from the client.
func writeError(c *gin.Context, log *zap.Logger, err error) {
	code := apperrors.CodeOf(err)
	if code == apperrors.CodeInternal {
		log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.String("user_id", currentUser(c)),
			zap.Error(err))
	}
	c.JSON(code.HTTPStatus(), errorResponse(apperrors.PublicMessage(err)))
}
