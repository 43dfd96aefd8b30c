package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"crewsignal/internal/metrics"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStack(handler http.Handler) (http.Handler, *metrics.Registry) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	registry := metrics.NewRegistry()
	return Observability(registry, logger)(handler), registry
}

func TestObservabilityRecordsRequestMetrics(t *testing.T) {
	wrapped, registry := newTestStack(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/signals", nil)
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, float64(1), registry.GetCounterValue(metrics.MetricHTTPRequests, map[string]string{
		"method": "POST",
		"status": "201",
	}))
}

func TestObservabilityDefaultsToOK(t *testing.T) {
	wrapped, registry := newTestStack(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hello"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)

	assert.Equal(t, float64(1), registry.GetCounterValue(metrics.MetricHTTPRequests, map[string]string{
		"method": "GET",
		"status": "200",
	}))
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(r *http.Request)
		expected string
	}{
		{
			name:     "remote addr",
			setup:    func(r *http.Request) { r.RemoteAddr = "10.0.0.1:1234" },
			expected: "10.0.0.1",
		},
		{
			name: "x-forwarded-for chain",
			setup: func(r *http.Request) {
				r.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
			},
			expected: "203.0.113.5",
		},
		{
			name: "x-real-ip",
			setup: func(r *http.Request) {
				r.Header.Set("X-Real-IP", "203.0.113.9")
			},
			expected: "203.0.113.9",
		},
		{
			name:     "bare remote addr without port",
			setup:    func(r *http.Request) { r.RemoteAddr = "10.0.0.2" },
			expected: "10.0.0.2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(req)
			assert.Equal(t, tt.expected, clientIP(req))
		})
	}
}
