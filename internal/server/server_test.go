package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"resort/internal/config"
	"resort/internal/middleware"
	"resort/internal/models"
	"resort/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testJWTSecret = "test-secret-key-12345678901234567890123456789012"

type testServer struct {
	*Server
	db *gorm.DB
	mr *miniredis.Miniredis
}

func newTestServer(t *testing.T, flags string) *testServer {
	t.Helper()
	db := testutil.NewTestDB(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	s, err := NewServer(&config.Config{
		JWTSecret:          testJWTSecret,
		Port:               "0",
		Env:                "test",
		AllowedOrigins:     "http://localhost:5173",
		FeatureFlags:       flags,
		StorageDir:         t.TempDir(),
		StoragePublicURL:   "http://localhost:8375/storage",
		StorageMaxUploadMB: 2,
	}, db, rdb)
	require.NoError(t, err)
	s.App()

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.hub.Shutdown(ctx)
		_ = rdb.Close()
	})
	return &testServer{Server: s, db: db, mr: mr}
}

// tokenFor issues a bearer token for an existing profile.
func (ts *testServer) tokenFor(t *testing.T, p *models.Profile) string {
	t.Helper()
	tok, _, err := middleware.IssueToken(testJWTSecret, p.ID, string(p.Role), time.Now())
	require.NoError(t, err)
	return tok
}

// do sends one request through the app. body is JSON-encoded unless it is nil.
func (ts *testServer) do(t *testing.T, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := ts.App().Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

func errorCode(t *testing.T, raw []byte) string {
	t.Helper()
	return decode[models.ErrorResponse](t, raw).Code
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, "")

	resp, _ := ts.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, raw := ts.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]any](t, raw)
	assert.Equal(t, "healthy", body["status"])
	checks := body["checks"].(map[string]any)
	assert.Equal(t, "healthy", checks["database"])
	assert.Equal(t, "healthy", checks["redis"])
}

func TestReadiness_RedisDownIsStillReady(t *testing.T) {
	ts := newTestServer(t, "")
	ts.mr.Close()

	resp, raw := ts.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	checks := decode[map[string]any](t, raw)["checks"].(map[string]any)
	assert.Equal(t, "unhealthy", checks["redis"])
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t, "")

	resp, raw := ts.do(t, http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, models.CodeNotFound, errorCode(t, raw))
}
