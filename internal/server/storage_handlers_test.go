package server

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"resort/internal/models"
	"resort/internal/storage"
	"resort/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (ts *testServer) upload(t *testing.T, bucket, token string, content []byte) (*http.Response, []byte) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("file", "photo.png")
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/storage/"+bucket, body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := ts.App().Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func TestUploadAndDeleteObject(t *testing.T) {
	ts := newTestServer(t, "")
	owner := testutil.CreateProfile(t, ts.db, "owner", models.RoleHost)
	other := testutil.CreateProfile(t, ts.db, "other", models.RoleGuest)
	admin := testutil.CreateProfile(t, ts.db, "admin", models.RoleAdmin)

	resp, raw := ts.upload(t, "accommodations", ts.tokenFor(t, owner), testutil.TinyPNG(t, 64, 48))
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	obj := decode[storage.Object](t, raw)
	assert.Equal(t, storage.BucketAccommodations, obj.Bucket)
	assert.Equal(t, 64, obj.Width)
	assert.Equal(t, 48, obj.Height)
	assert.Contains(t, obj.PublicURL, "http://localhost:8375/storage/accommodations/")

	// the stored object is served from the static mount
	resp, _ = ts.do(t, http.MethodGet, "/storage/accommodations/"+obj.Path, "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodDelete, "/api/storage/accommodations/"+obj.Path, ts.tokenFor(t, other), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodDelete, "/api/storage/accommodations/"+obj.Path, ts.tokenFor(t, owner), nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodDelete, "/api/storage/accommodations/"+obj.Path, ts.tokenFor(t, admin), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUploadObject_Rejections(t *testing.T) {
	ts := newTestServer(t, "")
	p := testutil.CreateProfile(t, ts.db, "uploader", models.RoleGuest)
	token := ts.tokenFor(t, p)

	resp, raw := ts.upload(t, "videos", token, testutil.TinyPNG(t, 4, 4))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, models.CodeValidation, errorCode(t, raw))

	resp, raw = ts.upload(t, "avatars", token, []byte("definitely not an image"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, models.CodeValidation, errorCode(t, raw))

	resp, _ = ts.upload(t, "avatars", "", testutil.TinyPNG(t, 4, 4))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodDelete, "/api/storage/avatars/abc/evil.txt", token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
