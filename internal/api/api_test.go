package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glats-richard/eigoonline/internal/conf"
	"github.com/glats-richard/eigoonline/internal/content"
	"github.com/glats-richard/eigoonline/internal/datastore"
	"github.com/glats-richard/eigoonline/internal/webhook"
)

const testSchoolDoc = `{
	"name": "Kimini英会話",
	"officialUrl": "https://kimini.online/",
	"planUrl": "https://kimini.online/plans",
	"bannerHref": "https://px.a8.net/svt/ejp?a8mat=XYZ",
	"summary": "学研グループのオンライン英会話。",
	"priceText": "月額6,380円から"
}`

func newTestController(t *testing.T, ds datastore.Interface) *Controller {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "kimini.json"), []byte(testSchoolDoc), 0o644))
	store, err := content.NewStore(dir)
	require.NoError(t, err)

	settings := &conf.Settings{}
	settings.Tracking.AllowedOrigins = []string{"https://eigoonline.com"}
	settings.Webhook.Secret = "s3cret"

	return New(echo.New(), ds, settings, store, webhook.New(""), nil)
}

func overrideRows(docs map[string]string) []datastore.SchoolOverride {
	rows := make([]datastore.SchoolOverride, 0, len(docs))
	for id, data := range docs {
		rows = append(rows, datastore.SchoolOverride{SchoolID: id, Data: data})
	}
	return rows
}

func doRequest(c *Controller, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	c.Echo.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestGetSchoolAppliesOverride(t *testing.T) {
	ds := new(mockDS)
	ds.On("ListOverrides").Return(overrideRows(map[string]string{
		"kimini": `{"priceText":"月額5,000円","officialUrl":"https://evil.example/"}`,
	}), nil)
	c := newTestController(t, ds)

	rec := doRequest(c, httptest.NewRequest(http.MethodGet, "/api/v1/schools/kimini", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeJSON(t, rec)
	assert.Equal(t, "kimini", body["id"])
	assert.Equal(t, "月額5,000円", body["priceText"])
	// The protected field survives regardless of the stored document.
	assert.Equal(t, "https://kimini.online/", body["officialUrl"])
}

func TestGetSchoolWithoutDatabaseServesStatic(t *testing.T) {
	c := newTestController(t, nil)

	rec := doRequest(c, httptest.NewRequest(http.MethodGet, "/api/v1/schools/kimini", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeJSON(t, rec)
	assert.Equal(t, "月額6,380円から", body["priceText"])
}

func TestGetSchoolNotFound(t *testing.T) {
	ds := new(mockDS)
	ds.On("ListOverrides").Return(overrideRows(nil), nil).Maybe()
	c := newTestController(t, ds)

	rec := doRequest(c, httptest.NewRequest(http.MethodGet, "/api/v1/schools/unknown", http.NoBody))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeJSON(t, rec)
	assert.NotEmpty(t, body["correlation_id"])
}

func TestListSchoolsIsCachedUntilOverrideWrite(t *testing.T) {
	ds := new(mockDS)
	ds.On("ListOverrides").Return(overrideRows(nil), nil).Once()
	c := newTestController(t, ds)

	rec := doRequest(c, httptest.NewRequest(http.MethodGet, "/api/v1/schools", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeJSON(t, rec)
	assert.EqualValues(t, 1, body["count"])

	// Second hit answers from cache: ListOverrides must not fire again.
	rec = doRequest(c, httptest.NewRequest(http.MethodGet, "/api/v1/schools", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)
	ds.AssertExpectations(t)
}

func TestGetSchoolReviewsIncludesBothAggregates(t *testing.T) {
	price := 3.0
	ds := new(mockDS)
	ds.On("ApprovedReviews", "kimini").Return([]datastore.Review{
		{ID: 1, OverallRating: 4, TeacherQuality: 4, MaterialQuality: 5, ConnectionQuality: 4, Body: "講師が親切でした。"},
		{ID: 2, OverallRating: 5, TeacherQuality: 5, MaterialQuality: 4, ConnectionQuality: 5, PriceRating: &price, Body: "教材が充実しています。"},
	}, nil)
	c := newTestController(t, ds)

	rec := doRequest(c, httptest.NewRequest(http.MethodGet, "/api/v1/schools/kimini/reviews", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeJSON(t, rec)
	assert.Len(t, body["reviews"], 2)

	simple, ok := body["simpleStats"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 2, simple["count"])
	assert.EqualValues(t, 4.5, simple["avg"])

	detailed, ok := body["stats"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 2, detailed["count"])
	assert.EqualValues(t, 1, detailed["priceCount"])
}

func TestGetSchoolReviewsWithoutDatabase(t *testing.T) {
	c := newTestController(t, nil)

	rec := doRequest(c, httptest.NewRequest(http.MethodGet, "/api/v1/schools/kimini/reviews", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeJSON(t, rec)
	assert.Empty(t, body["reviews"])

	simple, ok := body["simpleStats"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 0, simple["count"])
	assert.Nil(t, simple["avg"])
}

func TestHealthCheck(t *testing.T) {
	ds := new(mockDS)
	ds.On("ListOverrides").Return(overrideRows(nil), nil)
	c := newTestController(t, ds)

	rec := doRequest(c, httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeJSON(t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "connected", body["database_status"])
}

func TestSafeReturnTo(t *testing.T) {
	tests := []struct {
		target string
		want   string
	}{
		{"", "/fallback"},
		{"/tracker?tab=reviews", "/tracker?tab=reviews"},
		{"https://evil.example/x", "/fallback"},
		{"//evil.example/x", "/fallback"},
		{"relative/path", "/fallback"},
		{"/ok\r\nSet-Cookie: x", "/fallback"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, safeReturnTo(tt.target, "/fallback"), "target %q", tt.target)
	}
}
