package handlers

import (
	"errors"
	"net/http"

	"corplandlords/wireboard/internal/services"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// respondError maps service errors to HTTP responses.
func respondError(c *gin.Context, err error) {
	var ve *services.ValidationError
	var pe *services.PersistenceError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": ve.Fields})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Wire not found"})
	case errors.Is(err, services.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Sign in required"})
	case errors.Is(err, services.ErrImmutableField), errors.Is(err, services.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &pe):
		_ = c.Error(err)
		status := http.StatusInternalServerError
		if pe.Retryable {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"error": "Storage unavailable", "retryable": pe.Retryable})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// errorPayload is the body of an SSE "error" event.
func errorPayload(err error) gin.H {
	return gin.H{"error": err.Error(), "retryable": services.IsRetryable(err)}
}

func parseWireID(c *gin.Context) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid wire ID format"})
		return primitive.NilObjectID, false
	}
	return id, true
}
