package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"portal-connector/internal/config"
	"portal-connector/internal/metrics"
	"portal-connector/internal/scrape"
)

type fakeScraper struct {
	result  scrape.Result
	err     error
	lastReq scrape.Request
}

func (f *fakeScraper) Scrape(_ context.Context, req scrape.Request) (scrape.Result, error) {
	f.lastReq = req
	if f.err != nil {
		return scrape.Result{}, f.err
	}
	return f.result, nil
}

func testConfig() config.Config {
	return config.Config{
		Server: config.ServerConfig{Port: 8080},
		BrowserUse: config.BrowserUseConfig{
			BaseURL:             "https://api.browser-use.com/api/v1",
			PollIntervalSeconds: 5,
			PollTimeoutSeconds:  600,
		},
	}
}

func serve(t *testing.T, server *Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestScrapeSucceeds(t *testing.T) {
	t.Parallel()
	metrics.Init()

	scraper := &fakeScraper{result: scrape.Result{Inserted: 3, Skipped: 2}}
	server := NewServer(scraper, testConfig(), zap.NewNop())

	body := []byte(`{
		"portal_url": "https://jobs.example.com/login",
		"username": "u",
		"password": "p",
		"position_name": "Backend Developer",
		"company_name": "Acme s.r.o."
	}`)
	rec := serve(t, server, httptest.NewRequest(http.MethodPost, "/api/scrape", bytes.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Inserted   int    `json:"inserted"`
		Skipped    int    `json:"skipped"`
		DurationMS int64  `json:"duration_ms"`
		Message    string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Inserted)
	assert.Equal(t, 2, resp.Skipped)
	assert.Equal(t, "Successfully processed 5 candidates", resp.Message)
	assert.GreaterOrEqual(t, resp.DurationMS, int64(0))
	assert.Equal(t, "Acme s.r.o.", scraper.lastReq.CompanyName)
}

func TestScrapeInvalidJSON(t *testing.T) {
	t.Parallel()
	metrics.Init()

	server := NewServer(&fakeScraper{}, testConfig(), zap.NewNop())
	rec := serve(t, server, httptest.NewRequest(http.MethodPost, "/api/scrape", bytes.NewReader([]byte(`{`))))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScrapeFailureWrapsCause(t *testing.T) {
	t.Parallel()
	metrics.Init()

	scraper := &fakeScraper{err: errors.New("run automation task: browser-use poll: task failed: login rejected")}
	server := NewServer(scraper, testConfig(), zap.NewNop())

	body := []byte(`{"portal_url":"https://jobs.example.com","username":"u","password":"p","position_name":"x","company_name":"y"}`)
	rec := serve(t, server, httptest.NewRequest(http.MethodPost, "/api/scrape", bytes.NewReader(body)))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp["detail"], "Scraping failed:")
	assert.Contains(t, resp["detail"], "login rejected")
}

func TestScrapeUnavailableWithoutCredentials(t *testing.T) {
	t.Parallel()
	metrics.Init()

	server := NewServer(nil, testConfig(), zap.NewNop())
	body := []byte(`{"portal_url":"https://jobs.example.com","username":"u","password":"p","position_name":"x","company_name":"y"}`)
	rec := serve(t, server, httptest.NewRequest(http.MethodPost, "/api/scrape", bytes.NewReader(body)))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp["detail"], "not configured")
}

func TestHealth(t *testing.T) {
	t.Parallel()
	metrics.Init()

	server := NewServer(nil, testConfig(), zap.NewNop())
	rec := serve(t, server, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
	assert.Equal(t, "job-portal-connector", resp["service"])
}

func TestRootSummary(t *testing.T) {
	t.Parallel()
	metrics.Init()

	server := NewServer(&fakeScraper{}, testConfig(), zap.NewNop())
	rec := serve(t, server, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Job Portal Connector API", resp["message"])
	assert.Equal(t, true, resp["scrape_enabled"])

	server = NewServer(nil, testConfig(), zap.NewNop())
	rec = serve(t, server, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["scrape_enabled"])
}

func TestWebhookRoutesMounted(t *testing.T) {
	t.Parallel()
	metrics.Init()

	server := NewServer(nil, testConfig(), zap.NewNop())

	// No secrets configured: both receivers accept unverified deliveries.
	rec := serve(t, server, httptest.NewRequest(http.MethodPost, "/webhooks/github",
		bytes.NewReader([]byte(`{"ref":"refs/heads/main","commits":[]}`))))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, server, httptest.NewRequest(http.MethodPost, "/webhooks/vercel",
		bytes.NewReader([]byte(`{"type":"deployment.created"}`))))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestIDHeaderSet(t *testing.T) {
	t.Parallel()
	metrics.Init()

	server := NewServer(nil, testConfig(), zap.NewNop())
	rec := serve(t, server, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
