package server

import (
	"fmt"
	"net/http"
	"testing"

	"resort/internal/models"
	"resort/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cabinInput() map[string]any {
	return map[string]any{
		"title":           "Cedar Cabin",
		"description":     "Wood stove and a lake view",
		"location":        "Lake Tahoe, CA",
		"property_type":   "cabin",
		"price_per_night": 180,
		"max_guests":      4,
		"bedrooms":        2,
		"bathrooms":       1,
		"amenities":       []string{"wifi", "fireplace"},
		"image_urls":      []string{"http://localhost:8375/storage/accommodations/1/cabin.webp"},
		"is_published":    true,
	}
}

func kayakInput() map[string]any {
	return map[string]any{
		"title":            "Sunrise Kayak",
		"description":      "Paddle the bay at dawn",
		"location":         "Monterey, CA",
		"category":         "water",
		"price":            65,
		"duration_hours":   2.5,
		"max_participants": 6,
		"image_urls":       []string{"http://localhost:8375/storage/experiences/1/kayak.webp"},
		"is_published":     true,
	}
}

func TestCreateAccommodation(t *testing.T) {
	ts := newTestServer(t, "")
	host := testutil.CreateProfile(t, ts.db, "host", models.RoleHost)
	guest := testutil.CreateProfile(t, ts.db, "guest", models.RoleGuest)

	resp, raw := ts.do(t, http.MethodPost, "/api/accommodations", ts.tokenFor(t, host), cabinInput())
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	created := decode[models.Accommodation](t, raw)
	assert.Equal(t, host.ID, created.HostID)
	assert.Equal(t, "Cedar Cabin", created.Title)
	assert.True(t, created.IsPublished)

	resp, raw = ts.do(t, http.MethodPost, "/api/accommodations", ts.tokenFor(t, guest), cabinInput())
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, models.CodeForbidden, errorCode(t, raw))

	resp, _ = ts.do(t, http.MethodPost, "/api/accommodations", "", cabinInput())
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	bad := cabinInput()
	bad["price_per_night"] = -5
	bad["title"] = ""
	resp, raw = ts.do(t, http.MethodPost, "/api/accommodations", ts.tokenFor(t, host), bad)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, models.CodeValidation, errorCode(t, raw))
}

func TestCreateListing_StoresPublishFlag(t *testing.T) {
	tests := []struct {
		path  string
		input func() map[string]any
		model any
	}{
		{"/api/accommodations", cabinInput, &models.Accommodation{}},
		{"/api/experiences", kayakInput, &models.Experience{}},
	}
	for _, tt := range tests {
		for _, published := range []bool{false, true} {
			t.Run(fmt.Sprintf("%s published=%t", tt.path, published), func(t *testing.T) {
				ts := newTestServer(t, "")
				host := testutil.CreateProfile(t, ts.db, "host", models.RoleHost)

				var before int64
				require.NoError(t, ts.db.Model(tt.model).Count(&before).Error)

				body := tt.input()
				body["is_published"] = published
				resp, raw := ts.do(t, http.MethodPost, tt.path, ts.tokenFor(t, host), body)
				require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
				created := decode[struct {
					ID uint `json:"id"`
				}](t, raw)

				var after int64
				require.NoError(t, ts.db.Model(tt.model).Count(&after).Error)
				assert.Equal(t, before+1, after, "exactly one row inserted")

				var stored struct{ IsPublished bool }
				require.NoError(t, ts.db.Model(tt.model).Select("is_published").
					Where("id = ?", created.ID).Scan(&stored).Error)
				assert.Equal(t, published, stored.IsPublished)
			})
		}
	}
}

func TestBrowseAccommodations(t *testing.T) {
	ts := newTestServer(t, "")
	host := testutil.CreateProfile(t, ts.db, "host", models.RoleHost)
	testutil.CreateAccommodation(t, ts.db, host.ID, "Pine Lodge", 120, true)
	testutil.CreateAccommodation(t, ts.db, host.ID, "Birch Yurt", 80, true)
	testutil.CreateAccommodation(t, ts.db, host.ID, "Draft Treehouse", 60, false)

	resp, raw := ts.do(t, http.MethodGet, "/api/accommodations?sort=price_asc", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	rows := decode[[]models.Accommodation](t, raw)
	require.Len(t, rows, 2)
	assert.Equal(t, "Birch Yurt", rows[0].Title)
	assert.Equal(t, "Pine Lodge", rows[1].Title)

	resp, raw = ts.do(t, http.MethodGet, "/api/accommodations?min_price=100", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rows = decode[[]models.Accommodation](t, raw)
	require.Len(t, rows, 1)
	assert.Equal(t, "Pine Lodge", rows[0].Title)

	resp, raw = ts.do(t, http.MethodGet, "/api/accommodations?q=yurt", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]models.Accommodation](t, raw), 1)

	for _, query := range []string{"sort=cheapest", "min_price=abc", "min_price=200&max_price=100"} {
		resp, raw = ts.do(t, http.MethodGet, "/api/accommodations?"+query, "", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, query)
		assert.Equal(t, models.CodeValidation, errorCode(t, raw), query)
	}
}

func TestGetAccommodation_DraftVisibility(t *testing.T) {
	ts := newTestServer(t, "")
	host := testutil.CreateProfile(t, ts.db, "host", models.RoleHost)
	other := testutil.CreateProfile(t, ts.db, "other", models.RoleGuest)
	admin := testutil.CreateProfile(t, ts.db, "admin", models.RoleAdmin)
	draft := testutil.CreateAccommodation(t, ts.db, host.ID, "Draft Cabin", 90, false)
	path := fmt.Sprintf("/api/accommodations/%d", draft.ID)

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{"anonymous", "", http.StatusNotFound},
		{"other guest", ts.tokenFor(t, other), http.StatusNotFound},
		{"owner", ts.tokenFor(t, host), http.StatusOK},
		{"admin", ts.tokenFor(t, admin), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := ts.do(t, http.MethodGet, path, tt.token, nil)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestMyAccommodations(t *testing.T) {
	ts := newTestServer(t, "")
	host := testutil.CreateProfile(t, ts.db, "host", models.RoleHost)
	other := testutil.CreateProfile(t, ts.db, "other", models.RoleHost)
	testutil.CreateAccommodation(t, ts.db, host.ID, "Mine Published", 100, true)
	testutil.CreateAccommodation(t, ts.db, host.ID, "Mine Draft", 100, false)
	testutil.CreateAccommodation(t, ts.db, other.ID, "Not Mine", 100, true)

	resp, raw := ts.do(t, http.MethodGet, "/api/accommodations/mine", ts.tokenFor(t, host), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	rows := decode[[]models.Accommodation](t, raw)
	assert.Len(t, rows, 2)
	for _, a := range rows {
		assert.Equal(t, host.ID, a.HostID)
	}
}

func TestUpdateAndDeleteAccommodation_Ownership(t *testing.T) {
	ts := newTestServer(t, "")
	host := testutil.CreateProfile(t, ts.db, "host", models.RoleHost)
	rival := testutil.CreateProfile(t, ts.db, "rival", models.RoleHost)
	a := testutil.CreateAccommodation(t, ts.db, host.ID, "Lake House", 150, true)
	path := fmt.Sprintf("/api/accommodations/%d", a.ID)

	update := cabinInput()
	update["title"] = "Lake House Deluxe"

	resp, _ := ts.do(t, http.MethodPut, path, ts.tokenFor(t, rival), update)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, raw := ts.do(t, http.MethodPut, path, ts.tokenFor(t, host), update)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	assert.Equal(t, "Lake House Deluxe", decode[models.Accommodation](t, raw).Title)

	resp, _ = ts.do(t, http.MethodDelete, path, ts.tokenFor(t, rival), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodDelete, path, ts.tokenFor(t, host), nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestExperiences(t *testing.T) {
	ts := newTestServer(t, "")
	host := testutil.CreateProfile(t, ts.db, "guide", models.RoleHost)

	resp, raw := ts.do(t, http.MethodPost, "/api/experiences", ts.tokenFor(t, host), kayakInput())
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	created := decode[models.Experience](t, raw)
	assert.Equal(t, "water", created.Category)

	resp, raw = ts.do(t, http.MethodGet, "/api/experiences?category=water", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]models.Experience](t, raw), 1)

	resp, raw = ts.do(t, http.MethodGet, fmt.Sprintf("/api/experiences/%d", created.ID), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Sunrise Kayak", decode[models.Experience](t, raw).Title)

	resp, raw = ts.do(t, http.MethodGet, "/api/experiences/mine", ts.tokenFor(t, host), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]models.Experience](t, raw), 1)

	resp, _ = ts.do(t, http.MethodDelete, fmt.Sprintf("/api/experiences/%d", created.ID), ts.tokenFor(t, host), nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestComments(t *testing.T) {
	ts := newTestServer(t, "")
	host := testutil.CreateProfile(t, ts.db, "host", models.RoleHost)
	author := testutil.CreateProfile(t, ts.db, "author", models.RoleGuest)
	bystander := testutil.CreateProfile(t, ts.db, "bystander", models.RoleGuest)
	admin := testutil.CreateProfile(t, ts.db, "admin", models.RoleAdmin)
	a := testutil.CreateAccommodation(t, ts.db, host.ID, "River Cabin", 110, true)
	path := fmt.Sprintf("/api/listings/accommodation/%d/comments", a.ID)

	resp, raw := ts.do(t, http.MethodPost, path, ts.tokenFor(t, author), map[string]string{"body": "  Loved the creek  "})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	first := decode[models.Comment](t, raw)
	assert.Equal(t, "Loved the creek", first.Body)

	resp, raw = ts.do(t, http.MethodPost, path, ts.tokenFor(t, author), map[string]string{"body": "   "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, models.CodeValidation, errorCode(t, raw))

	resp, _ = ts.do(t, http.MethodPost, path, "", map[string]string{"body": "anon"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, raw = ts.do(t, http.MethodPost, path, ts.tokenFor(t, author), map[string]string{"body": "Second visit"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	second := decode[models.Comment](t, raw)

	resp, raw = ts.do(t, http.MethodGet, path, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]models.Comment](t, raw), 2)

	resp, _ = ts.do(t, http.MethodDelete, fmt.Sprintf("/api/comments/%d", first.ID), ts.tokenFor(t, bystander), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodDelete, fmt.Sprintf("/api/comments/%d", first.ID), ts.tokenFor(t, author), nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodDelete, fmt.Sprintf("/api/admin/comments/%d", second.ID), ts.tokenFor(t, admin), nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	var audits int64
	require.NoError(t, ts.db.Model(&models.AuditLog{}).Where("action = ?", models.AuditCommentDeleted).Count(&audits).Error)
	assert.Equal(t, int64(1), audits)

	resp, _ = ts.do(t, http.MethodGet, "/api/listings/campsite/1/comments", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestComments_UnpublishedListing(t *testing.T) {
	ts := newTestServer(t, "")
	host := testutil.CreateProfile(t, ts.db, "host", models.RoleHost)
	guest := testutil.CreateProfile(t, ts.db, "guest", models.RoleGuest)
	draft := testutil.CreateExperience(t, ts.db, host.ID, "Hidden Hike", 40, false)
	path := fmt.Sprintf("/api/listings/experience/%d/comments", draft.ID)

	resp, _ := ts.do(t, http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodPost, path, ts.tokenFor(t, guest), map[string]string{"body": "hello"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestFavorites(t *testing.T) {
	ts := newTestServer(t, "")
	host := testutil.CreateProfile(t, ts.db, "host", models.RoleHost)
	guest := testutil.CreateProfile(t, ts.db, "guest", models.RoleGuest)
	a := testutil.CreateAccommodation(t, ts.db, host.ID, "Meadow Cottage", 95, true)
	draft := testutil.CreateAccommodation(t, ts.db, host.ID, "Unlisted", 95, false)
	token := ts.tokenFor(t, guest)
	path := fmt.Sprintf("/api/favorites/accommodation/%d", a.ID)

	resp, raw := ts.do(t, http.MethodGet, "/api/favorites", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, models.CodeAuthRequired, errorCode(t, raw))

	resp, raw = ts.do(t, http.MethodPost, path, "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, models.CodeAuthRequired, errorCode(t, raw))

	resp, raw = ts.do(t, http.MethodPost, path, token, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	// saving twice is a no-op
	resp, _ = ts.do(t, http.MethodPost, path, token, nil)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodPost, fmt.Sprintf("/api/favorites/accommodation/%d", draft.ID), token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, raw = ts.do(t, http.MethodGet, "/api/favorites", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	favs := decode[[]models.Favorite](t, raw)
	require.Len(t, favs, 1)
	assert.Equal(t, a.ID, favs[0].ContentID)

	var events int64
	require.NoError(t, ts.db.Model(&models.EngagementEvent{}).
		Where("event_type = ?", models.EngagementFavorite).Count(&events).Error)
	assert.Equal(t, int64(1), events)

	resp, _ = ts.do(t, http.MethodDelete, path, token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, raw = ts.do(t, http.MethodGet, "/api/favorites", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]models.Favorite](t, raw))
}
