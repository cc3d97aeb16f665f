// api/middleware/auth.go
package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"example.com/fieldops/services/delivery/internal/models"
	"example.com/fieldops/services/delivery/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// contextKey is a type for context keys
type contextKey string

// PrincipalContextKey is where the authenticated API key is stored
const PrincipalContextKey contextKey = "principal"

// OptionalAPIKeyAuth resolves the Bearer token into a principal when one is
// presented. Requests without an Authorization header pass through
// anonymously; record-level authorization happens in the service guard.
// A header that is present but invalid is still rejected.
func OptionalAPIKeyAuth(repo repository.DeliveryRepository, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid Authorization header format. Expected: 'Bearer {token}'",
			})
			c.Abort()
			return
		}

		apiKey, err := repo.GetAPIKeyByKey(c.Request.Context(), parts[1])
		if err != nil {
			log.WithError(err).Warn("Invalid API key")
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid API key",
			})
			c.Abort()
			return
		}

		if apiKey.ExpiresAt != nil && apiKey.ExpiresAt.Before(time.Now()) {
			log.Warn("Expired API key")
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "API key expired",
			})
			c.Abort()
			return
		}

		// Update last used timestamp without blocking the request
		now := time.Now()
		apiKey.LastUsedAt = &now
		go func() {
			repo.UpdateAPIKey(context.Background(), apiKey)
		}()

		c.Set(string(PrincipalContextKey), apiKey)
		c.Next()
	}
}

// PrincipalFromContext retrieves the authenticated API key, or nil for an
// anonymous request
func PrincipalFromContext(c *gin.Context) *models.APIKey {
	val, exists := c.Get(string(PrincipalContextKey))
	if !exists {
		return nil
	}
	principal, ok := val.(*models.APIKey)
	if !ok {
		return nil
	}
	return principal
}
