package server

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohammed-shakir/climate-risk-cache/internal/cache/manager"
	"github.com/mohammed-shakir/climate-risk-cache/internal/core/config"
	"github.com/mohammed-shakir/climate-risk-cache/internal/core/health"
	"github.com/mohammed-shakir/climate-risk-cache/internal/core/router"
	"github.com/mohammed-shakir/climate-risk-cache/internal/envdata"
	"github.com/mohammed-shakir/climate-risk-cache/internal/estimate"
	"github.com/mohammed-shakir/climate-risk-cache/internal/intervention"
	"github.com/mohammed-shakir/climate-risk-cache/internal/risk"
)

type notReady struct{}

func (notReady) Readiness() (bool, []int32) { return false, nil }

func testDeps(ready map[string]health.ReadinessReporter) Deps {
	cache := manager.New(nil)
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "server_test_total"}))
	return Deps{
		Handlers: &router.Handlers{
			Risk:          risk.NewService(risk.NewEngine(estimate.New(estimate.NewRand(1))), cache, nil, nil),
			Data:          envdata.New(nil, cache),
			Interventions: intervention.NewService(cache, nil),
			Cache:         cache,
		},
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Ready:   ready,
	}
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestNewHandler_Routes(t *testing.T) {
	cfg := config.Config{CORSOrigins: []string{"*"}}
	srv := httptest.NewServer(NewHandler(cfg, discard(), testDeps(nil)))
	defer srv.Close()

	cases := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/readyz", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/api/v1/risk?lat=51.5&lon=-0.12", http.StatusOK},
		{http.MethodGet, "/api/v1/risk?lat=91&lon=0", http.StatusBadRequest},
		{http.MethodGet, "/api/v1/risk/indices?lat=51.5&lon=-0.12", http.StatusOK},
		{http.MethodGet, "/api/v1/data/elevation?lat=51.5&lon=-0.12", http.StatusOK},
		{http.MethodGet, "/api/v1/interventions", http.StatusOK},
		{http.MethodGet, "/api/v1/interventions/wetlands/impact?area_m2=500", http.StatusOK},
		{http.MethodGet, "/api/v1/cache/stats", http.StatusOK},
		{http.MethodDelete, "/api/v1/cache/risk", http.StatusOK},
		{http.MethodDelete, "/api/v1/cache/risk/some_key", http.StatusOK},
		{http.MethodDelete, "/api/v1/cache", http.StatusOK},
		{http.MethodPost, "/api/v1/risk?lat=0&lon=0", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/v2/risk", http.StatusNotFound},
	}
	for _, tc := range cases {
		req, err := http.NewRequest(tc.method, srv.URL+tc.path, nil)
		require.NoError(t, err)
		req.Header.Set("Origin", "http://example.test")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err, tc.path)
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		assert.Equal(t, tc.want, resp.StatusCode, "%s %s: %s", tc.method, tc.path, body)
		assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"), tc.path)
		assert.NotEmpty(t, resp.Header.Get("X-Request-ID"), tc.path)
	}
}

func TestNewHandler_MetricsUsesProvidedHandler(t *testing.T) {
	h := NewHandler(config.Config{}, discard(), testDeps(nil))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "server_test_total")
}

func TestNewHandler_ReadinessReflectsReporters(t *testing.T) {
	h := NewHandler(config.Config{}, discard(), testDeps(map[string]health.ReadinessReporter{"kafka": notReady{}}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `"kafka"`))
}

func TestRun_ShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, config.Config{Addr: addr}, discard(), testDeps(nil)) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/healthz")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
