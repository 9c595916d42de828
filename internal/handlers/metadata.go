package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tablerank/tablerank/internal/corpus"
	"github.com/tablerank/tablerank/pkg/models"
)

type MetadataHandler struct {
	store *corpus.Store
}

func NewMetadataHandler(store *corpus.Store) *MetadataHandler {
	return &MetadataHandler{store: store}
}

// Get lists the filter values clients can offer: known cities and
// localities, the cuisine vocabulary, and the price tiers.
func (h *MetadataHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"cities":        h.store.Cities(),
		"cuisines":      h.store.Cuisines(),
		"price_buckets": models.PriceBuckets,
		"restaurants":   h.store.Len(),
	})
}
