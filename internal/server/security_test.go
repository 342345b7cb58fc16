package server

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSecurityMiddleware(t *testing.T) {
	ts := newTestServer(t, "")

	t.Run("Security Headers", func(t *testing.T) {
		resp, _ := ts.do(t, http.MethodGet, "/health/live", "", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.NotEmpty(t, resp.Header.Get("X-Content-Type-Options"))
		assert.NotEmpty(t, resp.Header.Get("X-Frame-Options"))
		// uploaded images are embedded by the web client on another origin
		assert.Equal(t, "cross-origin", resp.Header.Get("Cross-Origin-Resource-Policy"))
	})

	t.Run("Request ID", func(t *testing.T) {
		resp, _ := ts.do(t, http.MethodGet, "/health/live", "", nil)
		assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	})

	t.Run("Errors never leak internals", func(t *testing.T) {
		resp, raw := ts.do(t, http.MethodGet, "/api/profiles/abc", "", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.NotContains(t, string(raw), "strconv")
	})
}
