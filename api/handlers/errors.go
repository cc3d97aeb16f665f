package handlers

import (
	"net/http"

	"example.com/fieldops/services/delivery/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// writeServiceError translates a service error into an HTTP response.
// Validation errors surface the field map keyed by external field names,
// matching the shape clients already parse.
func writeServiceError(c *gin.Context, log *logrus.Logger, err error) {
	if ve, ok := service.AsValidationError(err); ok {
		c.JSON(http.StatusBadRequest, externalFieldErrors(ve))
		return
	}

	switch err {
	case service.ErrNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case service.ErrForbidden:
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to perform this action"})
	case service.ErrConflict:
		c.JSON(http.StatusConflict, gin.H{"error": "Already exists"})
	default:
		log.WithError(err).Error("Unhandled service error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// externalFieldErrors rewrites the validation field map onto the external
// contract. Fields without a translation keep their internal name.
func externalFieldErrors(ve *service.ValidationError) map[string][]string {
	out := make(map[string][]string, len(ve.Fields))
	for field, message := range ve.Fields {
		name := field
		if external, ok := externalFieldNames[field]; ok {
			name = external
		}
		out[name] = []string{message}
	}
	return out
}
