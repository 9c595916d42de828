package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/tablerank/tablerank/internal/middleware"
	"github.com/tablerank/tablerank/internal/services"
	"github.com/tablerank/tablerank/pkg/models"
)

type RecommendationHandler struct {
	orchestrator *services.RetrievalOrchestrator
	logger       *logrus.Logger
}

func NewRecommendationHandler(orchestrator *services.RetrievalOrchestrator, logger *logrus.Logger) *RecommendationHandler {
	return &RecommendationHandler{
		orchestrator: orchestrator,
		logger:       logger,
	}
}

func (h *RecommendationHandler) Recommend(c *gin.Context) {
	var pref models.Preference
	if err := c.ShouldBindJSON(&pref); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_PREFERENCES",
				"message": err.Error(),
			},
		})
		return
	}

	sessionID := middleware.SessionID(c)
	result := h.orchestrator.Recommend(c.Request.Context(), &pref, sessionID)

	c.JSON(http.StatusOK, result)
}
