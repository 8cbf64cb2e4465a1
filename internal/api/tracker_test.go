package api

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestUpdateReviewStatus(t *testing.T) {
	ds := new(mockDS)
	comment := "対応済み"
	ds.On("UpdateReviewStatus", uint(12), "approved", &comment).Return(nil)
	c := newTestController(t, ds)

	form := url.Values{
		"id":             {"12"},
		"status":         {"approved"},
		"review_comment": {comment},
		"returnTo":       {"/tracker?tab=reviews"},
	}
	rec := doRequest(c, postForm("/api/v1/tracker/reviews/status", form))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/tracker?tab=reviews", rec.Header().Get(echo.HeaderLocation))
	ds.AssertExpectations(t)
}

func TestUpdateReviewStatusValidation(t *testing.T) {
	tests := []struct {
		name string
		form url.Values
	}{
		{"bad id", url.Values{"id": {"abc"}, "status": {"approved"}}},
		{"bad status", url.Values{"id": {"1"}, "status": {"check"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := new(mockDS)
			c := newTestController(t, ds)

			rec := doRequest(c, postForm("/api/v1/tracker/reviews/status", tt.form))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			ds.AssertNotCalled(t, "UpdateReviewStatus", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestUpdateConversionStatusFallsBackOnCrossOriginReturn(t *testing.T) {
	ds := new(mockDS)
	ds.On("UpdateConversionStatus", uint(3), "check").Return(nil)
	c := newTestController(t, ds)

	form := url.Values{
		"id":       {"3"},
		"status":   {"check"},
		"returnTo": {"https://evil.example/tracker"},
	}
	rec := doRequest(c, postForm("/api/v1/tracker/conversions/status", form))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, trackerDefaultReturn, rec.Header().Get(echo.HeaderLocation))
}

func TestUpsertOverrideStripsProtectedKeys(t *testing.T) {
	ds := new(mockDS)
	var stored []byte
	ds.On("UpsertOverride", "kimini", mock.Anything).Run(func(args mock.Arguments) {
		stored = args.Get(1).([]byte)
	}).Return(nil)
	c := newTestController(t, ds)

	rec := doRequest(c, postJSON("/api/v1/tracker/overrides",
		`{"schoolId": "kimini", "patch": {"priceText": "月額5,000円", "rating": 1}}`))
	require.Equal(t, http.StatusOK, rec.Code)

	require.NotNil(t, stored)
	assert.Contains(t, string(stored), "priceText")
	assert.NotContains(t, string(stored), "rating")
	ds.AssertExpectations(t)
}

func TestUpsertOverrideUnknownSchool(t *testing.T) {
	ds := new(mockDS)
	c := newTestController(t, ds)

	rec := doRequest(c, postJSON("/api/v1/tracker/overrides",
		`{"schoolId": "nope", "patch": {}}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	ds.AssertNotCalled(t, "UpsertOverride", mock.Anything, mock.Anything)
}

func TestDeleteOverride(t *testing.T) {
	ds := new(mockDS)
	ds.On("DeleteOverride", "kimini").Return(nil)
	c := newTestController(t, ds)

	rec := doRequest(c, httptest.NewRequest(http.MethodDelete, "/api/v1/tracker/overrides/kimini", http.NoBody))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	ds.AssertExpectations(t)
}

func TestListOverridesEndpoint(t *testing.T) {
	ds := new(mockDS)
	ds.On("ListOverrides").Return(overrideRows(map[string]string{
		"kimini": `{"priceText":"月額5,000円"}`,
	}), nil)
	c := newTestController(t, ds)

	rec := doRequest(c, httptest.NewRequest(http.MethodGet, "/api/v1/tracker/overrides", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeJSON(t, rec)
	assert.EqualValues(t, 1, body["count"])
}

func TestExportOverridesCSV(t *testing.T) {
	ds := new(mockDS)
	ds.On("ListOverrides").Return(overrideRows(nil), nil)
	c := newTestController(t, ds)

	rec := doRequest(c, httptest.NewRequest(http.MethodGet, "/api/v1/tracker/overrides/export", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "text/csv")
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "attachment")
	assert.Contains(t, rec.Body.String(), "id,name,officialUrl")
	assert.Contains(t, rec.Body.String(), "Kimini英会話")
}

func multipartCSV(t *testing.T, csvText string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "schools.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(csvText))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestImportOverrides(t *testing.T) {
	ds := new(mockDS)
	var stored []byte
	ds.On("UpsertOverride", "kimini", mock.Anything).Run(func(args mock.Arguments) {
		stored = args.Get(1).([]byte)
	}).Return(nil)
	c := newTestController(t, ds)

	csvText := "id,name,priceText\n" +
		"kimini,Kimini英会話,月額5000円\n" +
		"ghost,存在しない学校,500円\n"
	body, contentType := multipartCSV(t, csvText)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tracker/overrides/import", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := doRequest(c, req)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeJSON(t, rec)
	assert.EqualValues(t, 1, resp["imported"])
	errs := resp["errors"].([]any)
	require.Len(t, errs, 1)
	assert.Equal(t, "ghost", errs[0].(map[string]any)["schoolId"])

	require.NotNil(t, stored)
	assert.Contains(t, string(stored), "月額5000円")
}

func TestImportOverridesRejectsGarbage(t *testing.T) {
	ds := new(mockDS)
	c := newTestController(t, ds)

	body, contentType := multipartCSV(t, "no header row here")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tracker/overrides/import", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := doRequest(c, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Missing upload entirely.
	rec = doRequest(c, postForm("/api/v1/tracker/overrides/import", url.Values{}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
