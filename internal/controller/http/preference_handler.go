package http

import (
	"net/http"

	"pulse-notify/internal/entity"
	"pulse-notify/pkg/logger"

	"github.com/gin-gonic/gin"
)

type PreferenceHandler struct {
	preferences PreferenceUseCase
	logger      *logger.Logger
}

func NewPreferenceHandler(preferences PreferenceUseCase, logger *logger.Logger) *PreferenceHandler {
	return &PreferenceHandler{
		preferences: preferences,
		logger:      logger,
	}
}

func (h *PreferenceHandler) GetPreferences(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	prefs := h.preferences.Get(c.Request.Context(), userID)
	c.JSON(http.StatusOK, gin.H{"preferences": prefs})
}

func (h *PreferenceHandler) UpdatePreferences(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var update entity.PreferencesUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	prefs, err := h.preferences.Set(c.Request.Context(), userID, update)
	if err != nil {
		h.logger.Error("Failed to update preferences for user %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update preferences"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Preferences updated",
		"preferences": prefs,
	})
}

// ResetPreferences deletes the stored preferences; the next read synthesizes
// defaults again.
func (h *PreferenceHandler) ResetPreferences(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if err := h.preferences.Delete(c.Request.Context(), userID); err != nil {
		h.logger.Error("Failed to reset preferences for user %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reset preferences"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Preferences reset to defaults"})
}
