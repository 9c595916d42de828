package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/tablerank/tablerank/internal/services"
	"github.com/tablerank/tablerank/internal/storage"
)

type AdminHandler struct {
	services      *services.Services
	feedbackStore *storage.FeedbackStore
	logger        *logrus.Logger
}

func NewAdminHandler(svc *services.Services, feedbackStore *storage.FeedbackStore, logger *logrus.Logger) *AdminHandler {
	return &AdminHandler{
		services:      svc,
		feedbackStore: feedbackStore,
		logger:        logger,
	}
}

func (h *AdminHandler) Analytics(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Analytics.Summary())
}

func (h *AdminHandler) CacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Cache.Stats())
}

// FeedbackStats serves the in-memory tallies and, when a database is
// configured, the durable ones next to them.
func (h *AdminHandler) FeedbackStats(c *gin.Context) {
	payload := gin.H{"in_memory": h.services.Analytics.FeedbackStats()}

	if h.feedbackStore != nil {
		persisted, err := h.feedbackStore.Stats(c.Request.Context())
		if err != nil {
			h.logger.WithError(err).Warn("Failed to read persisted feedback stats")
		} else {
			payload["persisted"] = persisted
		}
	}

	c.JSON(http.StatusOK, payload)
}

func (h *AdminHandler) ExperimentResults(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Experiments.Results())
}

// RecentFeedback lists the latest persisted feedback rows for one
// variant, newest first. It needs the durable store.
func (h *AdminHandler) RecentFeedback(c *gin.Context) {
	if h.feedbackStore == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": gin.H{
				"code":    "FEEDBACK_STORE_UNAVAILABLE",
				"message": "Persistent feedback storage is not configured",
			},
		})
		return
	}

	variant := c.DefaultQuery("variant", "A")
	if variant != "A" && variant != "B" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_VARIANT",
				"message": "Variant must be A or B",
			},
		})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 || limit > 100 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_LIMIT",
				"message": "Limit must be between 1 and 100",
			},
		})
		return
	}

	records, err := h.feedbackStore.RecentByVariant(c.Request.Context(), variant, limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to read recent feedback")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "FEEDBACK_READ_FAILED",
				"message": "Failed to read recent feedback",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"variant":  variant,
		"feedback": records,
	})
}
