package auth

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	headerName = "X-API-Key"

	// queryName is the fallback for WebSocket clients, which cannot set
	// request headers from the browser API.
	queryName = "api_key"
)

// APIKeyMiddleware validates the API key from the X-API-Key header or,
// failing that, the api_key query parameter. If apiKey is empty,
// authentication is disabled.
func APIKeyMiddleware(apiKey string) gin.HandlerFunc {
	expected := []byte(apiKey)

	return func(c *gin.Context) {
		if apiKey == "" {
			c.Next()
			return
		}

		provided := c.GetHeader(headerName)
		if provided == "" {
			provided = c.Query(queryName)
		}
		if provided == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing API key",
			})
			return
		}

		if subtle.ConstantTimeCompare([]byte(provided), expected) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "invalid API key",
			})
			return
		}

		c.Next()
	}
}
