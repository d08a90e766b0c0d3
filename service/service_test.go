package service

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-scenario/metrics"
	"github.com/ethereum-optimism/infra/op-scenario/types"
)

func TestHealthzHandler(t *testing.T) {
	h := &HealthzServer{}
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://example.com")
	rec := httptest.NewRecorder()

	h.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsHandler(t *testing.T) {
	metrics.RecordCase("ServiceCheck", types.TestStatusPass)

	srv := httptest.NewServer((&MetricsServer{}).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "scenario_cases_total")
	assert.Contains(t, string(body), `class="ServiceCheck"`)
}

func TestShutdownBeforeStart(t *testing.T) {
	s := New(DefaultConfig(), nil)
	assert.NotPanics(t, s.Shutdown)
	assert.Equal(t, "0.0.0.0:8080", DefaultConfig().HealthzAddr)
	assert.Equal(t, "0.0.0.0:7300", DefaultConfig().MetricsAddr)
}
