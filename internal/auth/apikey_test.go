package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func protectedRouter(apiKey string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(APIKeyMiddleware(apiKey))
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	return r
}

func TestAPIKeyMiddleware(t *testing.T) {
	const key = "table-secret"

	tests := []struct {
		name       string
		apiKey     string
		header     string
		query      string
		wantStatus int
	}{
		{"disabled auth passes", "", "", "", http.StatusOK},
		{"missing key", key, "", "", http.StatusUnauthorized},
		{"wrong header key", key, "nope", "", http.StatusForbidden},
		{"valid header key", key, key, "", http.StatusOK},
		{"valid query key", key, "", key, http.StatusOK},
		{"wrong query key", key, "", "nope", http.StatusForbidden},
		{"header wins over query", key, key, "nope", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := protectedRouter(tt.apiKey)

			target := "/ping"
			if tt.query != "" {
				target += "?api_key=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tt.header != "" {
				req.Header.Set("X-API-Key", tt.header)
			}

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}
