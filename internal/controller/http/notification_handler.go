package http

import (
	"net/http"
	"strconv"

	"pulse-notify/internal/entity"
	"pulse-notify/internal/usecase"
	"pulse-notify/pkg/logger"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	publisher PublisherUseCase
	history   HistoryUseCase
	logger    *logger.Logger
}

func NewNotificationHandler(publisher PublisherUseCase, history HistoryUseCase, logger *logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		publisher: publisher,
		history:   history,
		logger:    logger,
	}
}

type SendNotificationRequest struct {
	UserID   string                 `json:"user_id" binding:"required"`
	Type     string                 `json:"type" binding:"required"`
	Title    string                 `json:"title" binding:"required"`
	Body     string                 `json:"body" binding:"required"`
	Category string                 `json:"category" binding:"required"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

type BroadcastNotificationRequest struct {
	UserIDs  []string               `json:"user_ids" binding:"required"`
	Type     string                 `json:"type" binding:"required"`
	Title    string                 `json:"title" binding:"required"`
	Body     string                 `json:"body" binding:"required"`
	Category string                 `json:"category" binding:"required"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

type BatchNotificationRequest struct {
	Notifications []SendNotificationRequest `json:"notifications" binding:"required"`
}

func (r *SendNotificationRequest) toInput() (usecase.PublishInput, bool) {
	notificationType := entity.NotificationType(r.Type)
	category := entity.Category(r.Category)
	if !notificationType.Valid() || !category.Valid() {
		return usecase.PublishInput{}, false
	}
	return usecase.PublishInput{
		UserID:   r.UserID,
		Type:     notificationType,
		Title:    r.Title,
		Body:     r.Body,
		Category: category,
		Metadata: r.Metadata,
	}, true
}

func (h *NotificationHandler) SendNotification(c *gin.Context) {
	var req SendNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	input, ok := req.toInput()
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown notification type or category"})
		return
	}

	notification, err := h.publisher.Publish(c.Request.Context(), input)
	if err != nil {
		h.logger.Error("Failed to publish notification: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send notification"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":      "Notification sent successfully",
		"notification": notification,
	})
}

func (h *NotificationHandler) SendBatch(c *gin.Context) {
	var req BatchNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	inputs := make([]usecase.PublishInput, 0, len(req.Notifications))
	for _, item := range req.Notifications {
		input, ok := item.toInput()
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown notification type or category"})
			return
		}
		inputs = append(inputs, input)
	}

	published, err := h.publisher.PublishBatch(c.Request.Context(), inputs)
	if err != nil {
		h.logger.Error("Failed to publish batch: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Batch publish aborted",
			"published": len(published),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Notifications sent successfully",
		"published": len(published),
	})
}

func (h *NotificationHandler) BroadcastNotification(c *gin.Context) {
	var req BroadcastNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	notificationType := entity.NotificationType(req.Type)
	category := entity.Category(req.Category)
	if !notificationType.Valid() || !category.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown notification type or category"})
		return
	}

	sentCount, err := h.publisher.BroadcastNotification(c.Request.Context(), req.UserIDs, req.Title, req.Body, notificationType, category, req.Metadata)
	if err != nil {
		h.logger.Error("Failed to broadcast notification: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to broadcast notification"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Notifications sent successfully",
		"sent_count": sentCount,
	})
}

func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	limit := 50
	if limitStr := c.Query("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 && parsedLimit <= 100 {
			limit = parsedLimit
		}
	}

	offset := 0
	if offsetStr := c.Query("offset"); offsetStr != "" {
		if parsedOffset, err := strconv.Atoi(offsetStr); err == nil && parsedOffset >= 0 {
			offset = parsedOffset
		}
	}

	notifications, totalCount, err := h.history.Range(c.Request.Context(), userID, offset, limit)
	if err != nil {
		h.logger.Error("Failed to get notifications: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get notifications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"notifications": notifications,
		"count":         len(notifications),
		"total":         totalCount,
		"offset":        offset,
	})
}

func (h *NotificationHandler) MarkNotificationRead(c *gin.Context) {
	userID := c.GetString("user_id")
	notificationID := c.Param("id")

	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	found, err := h.history.MarkRead(c.Request.Context(), userID, notificationID)
	if err != nil {
		h.logger.Error("Failed to mark notification read: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark notification read"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}

func (h *NotificationHandler) DeleteNotification(c *gin.Context) {
	userID := c.GetString("user_id")
	notificationID := c.Param("id")

	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	found, err := h.history.Remove(c.Request.Context(), userID, notificationID)
	if err != nil {
		h.logger.Error("Failed to delete notification: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete notification"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notification deleted"})
}

func (h *NotificationHandler) GetUnreadCount(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	count, err := h.history.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to count unread notifications: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count unread notifications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"unread": count})
}

func (h *NotificationHandler) ClearNotifications(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if err := h.history.Clear(c.Request.Context(), userID); err != nil {
		h.logger.Error("Failed to clear notifications: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear notifications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notifications cleared"})
}
