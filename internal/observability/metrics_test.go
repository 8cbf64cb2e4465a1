package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRegisterAndExpose(t *testing.T) {
	m := NewMetrics()

	m.ReviewsSubmitted.WithLabelValues("kimini").Inc()
	m.ClicksTracked.Inc()
	m.Conversions.WithLabelValues("pending").Inc()
	m.ConversionDedup.Inc()
	m.OverrideWrites.WithLabelValues("upsert").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `eigoonline_reviews_submitted_total{school_id="kimini"} 1`)
	assert.Contains(t, body, "eigoonline_clicks_total 1")
	assert.Contains(t, body, `eigoonline_conversions_total{status="pending"} 1`)
}

func TestMetricsInstancesAreIsolated(t *testing.T) {
	a := NewMetrics()
	b := NewMetrics()
	a.ClicksTracked.Inc()

	rec := httptest.NewRecorder()
	b.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	assert.Contains(t, rec.Body.String(), "eigoonline_clicks_total 0")
}
