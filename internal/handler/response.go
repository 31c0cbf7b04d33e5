package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/isomap/service-isochrone/internal/domain"
)

func success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}

// respondError maps domain error kinds to HTTP statuses. Anything unclassified is a
// 500 carrying fallback, never the internal error text.
func respondError(c *gin.Context, err error, fallback string) {
	_ = c.Error(err)

	switch {
	case errors.Is(err, domain.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": domain.PublicMessage(err)})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": domain.PublicMessage(err)})
	case errors.Is(err, domain.ErrUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": domain.PublicMessage(err)})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}

// isMalformedBody reports whether a bind error came from the JSON decoder rather than
// from field validation.
func isMalformedBody(err error) bool {
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError
	return errors.As(err, &typeErr) || errors.As(err, &syntaxErr)
}
