package http

import (
	"net/http"

	"pulse-notify/internal/stream"
	"pulse-notify/pkg/logger"
	"pulse-notify/pkg/queue"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// AdminHandler exposes introspection endpoints for internal tooling: live
// connections, per-user cache state and a health probe.
type AdminHandler struct {
	registry    *stream.Registry
	history     HistoryUseCase
	broker      *queue.Manager
	redisClient *redis.Client
	logger      *logger.Logger
}

func NewAdminHandler(registry *stream.Registry, history HistoryUseCase, broker *queue.Manager, redisClient *redis.Client, logger *logger.Logger) *AdminHandler {
	return &AdminHandler{
		registry:    registry,
		history:     history,
		broker:      broker,
		redisClient: redisClient,
		logger:      logger,
	}
}

func (h *AdminHandler) GetConnections(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"count": h.registry.Count(),
		"users": h.registry.ActiveUsers(),
	})
}

func (h *AdminHandler) GetUserCacheInfo(c *gin.Context) {
	userID := c.Param("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User ID required"})
		return
	}

	_, total, err := h.history.Range(c.Request.Context(), userID, 0, 1)
	if err != nil {
		h.logger.Error("Failed to inspect history for user %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to inspect cache"})
		return
	}

	unread, err := h.history.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to count unread for user %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to inspect cache"})
		return
	}

	_, connected := h.registry.Get(userID)

	c.JSON(http.StatusOK, gin.H{
		"user_id":   userID,
		"history":   total,
		"unread":    unread,
		"connected": connected,
	})
}

func (h *AdminHandler) Health(c *gin.Context) {
	redisStatus := "ok"
	if err := h.redisClient.Ping(c.Request.Context()).Err(); err != nil {
		redisStatus = "unreachable"
	}

	status := http.StatusOK
	overall := "ok"
	if h.broker.State() != queue.StateConnected || redisStatus != "ok" {
		status = http.StatusServiceUnavailable
		overall = "degraded"
	}

	c.JSON(status, gin.H{
		"status": overall,
		"broker": h.broker.State().String(),
		"redis":  redisStatus,
	})
}
