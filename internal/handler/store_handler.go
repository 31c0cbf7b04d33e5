package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/isomap/service-isochrone/internal/application"
)

// StoreHandler exposes the precomputed store summary.
type StoreHandler struct {
	service *application.IsochroneService
}

// NewStoreHandler creates a new StoreHandler.
func NewStoreHandler(service *application.IsochroneService) *StoreHandler {
	return &StoreHandler{service: service}
}

// RegisterRoutes registers the store routes.
func (h *StoreHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/api/v1/isochrone/store", h.StoreStats)
}

// StoreStats handles GET /api/v1/isochrone/store.
func (h *StoreHandler) StoreStats(c *gin.Context) {
	success(c, h.service.StoreStats())
}
