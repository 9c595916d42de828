// Package handlers holds the HTTP layer. Every handler binds and
// validates its payload, delegates to a service, and translates the
// outcome into JSON; no retrieval logic lives here.
package handlers

import (
	"github.com/sirupsen/logrus"

	"github.com/tablerank/tablerank/internal/corpus"
	"github.com/tablerank/tablerank/internal/services"
	"github.com/tablerank/tablerank/internal/storage"
)

type Handlers struct {
	Health         *HealthHandler
	Recommendation *RecommendationHandler
	Feedback       *FeedbackHandler
	Metadata       *MetadataHandler
	Admin          *AdminHandler
}

// New builds the handler set. feedbackStore may be nil when no
// database is configured.
func New(logger *logrus.Logger, svc *services.Services, store *corpus.Store, feedbackStore *storage.FeedbackStore) *Handlers {
	var appender FeedbackAppender
	if feedbackStore != nil {
		appender = feedbackStore
	}

	return &Handlers{
		Health:         NewHealthHandler(logger, store, svc.Explainer),
		Recommendation: NewRecommendationHandler(svc.Orchestrator, logger),
		Feedback:       NewFeedbackHandler(svc.Analytics, svc.Experiments, appender, logger),
		Metadata:       NewMetadataHandler(store),
		Admin:          NewAdminHandler(svc, feedbackStore, logger),
	}
}
