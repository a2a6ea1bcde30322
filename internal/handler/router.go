package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/imtahan-notifier/internal/middleware"
)

type RouterDeps struct {
	Notifications *NotificationHandler
	RateLimit     time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.GET("/healthz", Healthz)
	api.Any("/notifications/test", middleware.RateLimit(deps.RateLimit), deps.Notifications.Enqueue)
}
