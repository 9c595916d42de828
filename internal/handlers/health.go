package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/tablerank/tablerank/internal/corpus"
	"github.com/tablerank/tablerank/internal/services"
)

type HealthHandler struct {
	logger    *logrus.Logger
	store     *corpus.Store
	explainer *services.Explainer
}

func NewHealthHandler(logger *logrus.Logger, store *corpus.Store, explainer *services.Explainer) *HealthHandler {
	return &HealthHandler{
		logger:    logger,
		store:     store,
		explainer: explainer,
	}
}

// Check reports service health. The server refuses to start without a
// corpus, so a reachable server with a non-empty corpus is healthy;
// the reasoning service being off only degrades explanations.
func (h *HealthHandler) Check(c *gin.Context) {
	status := "healthy"
	httpStatus := http.StatusOK
	if h.store.Len() == 0 {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, gin.H{
		"status":      status,
		"restaurants": h.store.Len(),
		"llm_enabled": h.explainer.Enabled(),
	})
}
