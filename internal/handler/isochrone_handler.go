package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/isomap/service-isochrone/internal/application"
)

const (
	// KeyHeader carries the cache key the response answers.
	KeyHeader = "X-Isochrone-Key"
	// SourceHeader tells whether the response was precomputed, scaled or generated.
	SourceHeader = "X-Isochrone-Source"
)

// IsochroneHandler handles HTTP requests for approximate isochrones.
type IsochroneHandler struct {
	service *application.IsochroneService
}

// NewIsochroneHandler creates a new IsochroneHandler.
func NewIsochroneHandler(service *application.IsochroneService) *IsochroneHandler {
	return &IsochroneHandler{service: service}
}

// RegisterRoutes registers the isochrone routes. rateLimit guards the POST route.
func (h *IsochroneHandler) RegisterRoutes(r *gin.RouterGroup, rateLimit gin.HandlerFunc) {
	isochrones := r.Group("/api/v1/isochrone")
	{
		isochrones.POST("", withOptional(rateLimit, h.Approximate)...)
		isochrones.GET("/demo", h.DemoOptions)
	}
}

// Approximate handles POST /api/v1/isochrone.
func (h *IsochroneHandler) Approximate(c *gin.Context) {
	var req application.IsochroneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if isMalformedBody(err) {
			badRequest(c, "Invalid request body")
			return
		}
		badRequest(c, "Missing required parameters")
		return
	}

	result, err := h.service.Approximate(req)
	if err != nil {
		respondError(c, err, "Failed to generate isochrone")
		return
	}

	c.Header(KeyHeader, result.Key)
	c.Header(SourceHeader, string(result.Source))
	c.JSON(http.StatusOK, result.Collection)
}

// DemoOptions handles GET /api/v1/isochrone/demo.
func (h *IsochroneHandler) DemoOptions(c *gin.Context) {
	success(c, h.service.DemoOptions())
}

func withOptional(mw gin.HandlerFunc, handler gin.HandlerFunc) []gin.HandlerFunc {
	if mw == nil {
		return []gin.HandlerFunc{handler}
	}
	return []gin.HandlerFunc{mw, handler}
}
