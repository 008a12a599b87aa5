package monitoring

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestMetrics(t *testing.T) {
	m := NewMetrics()
	m.ObservePrediction("High", 2*time.Millisecond)
	m.ObservePrediction("High", time.Millisecond)
	m.ObservePrediction("Low", time.Millisecond)
	m.ObserveError("validation")
	m.ObserveCacheHit()
	m.ObserveReload(nil)
	m.ObserveReload(errors.New("bad bundle"))

	body := scrape(t, m)
	assert.Contains(t, body, `housevalue_predictions_total{tier="High"} 2`)
	assert.Contains(t, body, `housevalue_predictions_total{tier="Low"} 1`)
	assert.Contains(t, body, `housevalue_prediction_errors_total{kind="validation"} 1`)
	assert.Contains(t, body, "housevalue_prediction_cache_hits_total 1")
	assert.Contains(t, body, `housevalue_bundle_reloads_total{result="failed"} 1`)
	assert.Contains(t, body, `housevalue_bundle_reloads_total{result="ok"} 1`)
	assert.Contains(t, body, "housevalue_prediction_duration_seconds_count 3")
	assert.Contains(t, body, "go_goroutines")
}

func TestMetricsAreIsolated(t *testing.T) {
	first := NewMetrics()
	second := NewMetrics()
	first.ObserveCacheHit()

	assert.Contains(t, scrape(t, second), "housevalue_prediction_cache_hits_total 0")
}
