package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/imtahan-notifier/internal/pkg/response"
	"github.com/xxxsen/imtahan-notifier/internal/service"
)

type NotificationHandler struct {
	enqueue *service.EnqueueService
}

func NewNotificationHandler(enqueue *service.EnqueueService) *NotificationHandler {
	return &NotificationHandler{enqueue: enqueue}
}

type enqueueRequest struct {
	UserID string            `json:"userId"`
	Title  string            `json:"title"`
	Body   string            `json:"body"`
	Data   map[string]string `json:"data"`
}

// Enqueue queues a test notification for a user. It is mounted for every
// method so non-POST requests get a JSON 405 instead of gin's plain 404.
func (h *NotificationHandler) Enqueue(c *gin.Context) {
	switch c.Request.Method {
	case http.MethodPost:
	case http.MethodOptions:
		c.AbortWithStatus(http.StatusNoContent)
		return
	default:
		response.Error(c, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	var req enqueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "userId is required")
		return
	}
	_, err := h.enqueue.Enqueue(c.Request.Context(), service.EnqueueRequest{
		UserID: req.UserID,
		Title:  req.Title,
		Body:   req.Body,
		Data:   req.Data,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{
		"success": true,
		"message": "Notification queued for sending",
	})
}
