package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/imtahan-notifier/internal/middleware"
	appErr "github.com/xxxsen/imtahan-notifier/internal/pkg/errors"
	"github.com/xxxsen/imtahan-notifier/internal/pkg/response"
)

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	requestID, _ := c.Get(middleware.ContextRequestIDKey)
	logutil.GetLogger(c.Request.Context()).Error("request failed",
		zap.Any("request_id", requestID),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	switch {
	case errors.Is(err, appErr.ErrUserIDRequired):
		response.Error(c, http.StatusBadRequest, "userId is required")
	case errors.Is(err, appErr.ErrUserNotFound):
		response.Error(c, http.StatusNotFound, "User not found")
	case errors.Is(err, appErr.ErrNoToken):
		response.Error(c, http.StatusBadRequest, "User has no FCM token")
	default:
		response.Error(c, http.StatusInternalServerError, err.Error())
	}
}
