package metrics

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	return rec.Body.String()
}

func TestCollectorsRecord(t *testing.T) {
	m := New()
	m.ObserveCompletion("career", 120*time.Millisecond, nil)
	m.ObserveCompletion("career", time.Second, errors.New("boom"))
	m.SubmitRejected("busy")
	m.SessionWrite("create", nil)
	m.HTTPRequest("GET", 404)

	body := scrape(t, m)
	assert.Contains(t, body, `edgex_completion_requests_total{outcome="ok",tool="career"} 1`)
	assert.Contains(t, body, `edgex_completion_requests_total{outcome="error",tool="career"} 1`)
	assert.Contains(t, body, `edgex_chat_submits_rejected_total{reason="busy"} 1`)
	assert.Contains(t, body, `edgex_session_writes_total{kind="create",outcome="ok"} 1`)
	assert.Contains(t, body, `edgex_http_requests_total{method="GET",status="4xx"} 1`)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveCompletion("mood", time.Second, nil)
	m.SubmitRejected("empty")
	m.SessionWrite("update", nil)
	m.Transcription(nil)
	m.HTTPRequest("POST", 200)
	m.RateLimited()
}
