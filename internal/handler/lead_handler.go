package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/isomap/service-isochrone/internal/application"
	leadDomain "github.com/isomap/service-isochrone/internal/domain/lead"
)

// LeadHandler handles the landing page and beta signup forms.
type LeadHandler struct {
	service *application.LeadService
}

// NewLeadHandler creates a new LeadHandler.
func NewLeadHandler(service *application.LeadService) *LeadHandler {
	return &LeadHandler{service: service}
}

// RegisterRoutes registers the lead capture routes. rateLimit guards both forms.
func (h *LeadHandler) RegisterRoutes(r *gin.RouterGroup, rateLimit gin.HandlerFunc) {
	v1 := r.Group("/api/v1")
	{
		v1.POST("/subscribe", withOptional(rateLimit, h.Subscribe)...)
		v1.POST("/beta-signup", withOptional(rateLimit, h.BetaSignup)...)
	}
}

// Subscribe handles POST /api/v1/subscribe.
func (h *LeadHandler) Subscribe(c *gin.Context) {
	h.capture(c, leadDomain.SourceLandingPage, "Failed to process subscription")
}

// BetaSignup handles POST /api/v1/beta-signup.
func (h *LeadHandler) BetaSignup(c *gin.Context) {
	h.capture(c, leadDomain.SourceBetaSignup, "Failed to submit. Please try again.")
}

func (h *LeadHandler) capture(c *gin.Context, source leadDomain.Source, failure string) {
	var req application.CaptureLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Email is required")
		return
	}

	result, err := h.service.Capture(c.Request.Context(), req, source)
	if err != nil {
		respondError(c, err, failure)
		return
	}

	c.JSON(http.StatusOK, result)
}
