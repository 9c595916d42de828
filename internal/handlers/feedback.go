package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/tablerank/tablerank/internal/middleware"
	"github.com/tablerank/tablerank/internal/services"
	"github.com/tablerank/tablerank/pkg/models"
)

type FeedbackHandler struct {
	analytics   *services.AnalyticsService
	experiments *services.ExperimentService
	store       FeedbackAppender
	logger      *logrus.Logger
}

// FeedbackAppender persists feedback durably; nil disables persistence.
type FeedbackAppender interface {
	Append(ctx context.Context, record services.FeedbackRecord) error
}

func NewFeedbackHandler(
	analytics *services.AnalyticsService,
	experiments *services.ExperimentService,
	store FeedbackAppender,
	logger *logrus.Logger,
) *FeedbackHandler {
	return &FeedbackHandler{
		analytics:   analytics,
		experiments: experiments,
		store:       store,
		logger:      logger,
	}
}

// Submit records a thumbs up/down. The variant defaults to the
// session's assigned variant so experiment tallies stay consistent
// even when a client omits it.
func (h *FeedbackHandler) Submit(c *gin.Context) {
	var req models.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_FEEDBACK",
				"message": err.Error(),
			},
		})
		return
	}

	variant := req.Variant
	if variant == "" {
		variant = h.experiments.Assign(middleware.SessionID(c))
	}

	record := services.FeedbackRecord{
		RestaurantID:  req.RestaurantID,
		QueryLocation: req.QueryLocation,
		IsPositive:    *req.IsPositive,
		Variant:       variant,
	}

	total := h.analytics.RecordFeedback(record)
	h.experiments.RecordFeedback(variant, record.IsPositive)

	if h.store != nil {
		if err := h.store.Append(c.Request.Context(), record); err != nil {
			h.logger.WithError(err).Warn("Failed to persist feedback")
		}
	}

	c.JSON(http.StatusOK, models.FeedbackResponse{
		Status:        "recorded",
		TotalFeedback: total,
	})
}
