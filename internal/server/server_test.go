package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ttscraper/pkg/browser/browsertest"
	"ttscraper/pkg/config"
	"ttscraper/pkg/logger"
	"ttscraper/pkg/models"
	"ttscraper/pkg/scraper"
)

type scrapeFunc func(ctx context.Context, handle string) models.ProfileResult

func (f scrapeFunc) ScrapeProfile(ctx context.Context, handle string) models.ProfileResult {
	return f(ctx, handle)
}

func testServerConfig() config.ServerConfig {
	cfg := config.DefaultConfig().Server
	cfg.MaxSessions = 1
	cfg.ShutdownTimeout = time.Second
	return cfg
}

func postScrape(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/scrape", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) response {
	t.Helper()
	var resp response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHealth(t *testing.T) {
	srv := New(testServerConfig(), scrapeFunc(nil), logger.NewTestLogger())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestScrapeBadRequests(t *testing.T) {
	called := false
	srv := New(testServerConfig(), scrapeFunc(func(ctx context.Context, handle string) models.ProfileResult {
		called = true
		return models.ProfileResult{}
	}), logger.NewTestLogger())

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"empty body", "", "invalid JSON body"},
		{"not json", "url=someone", "invalid JSON body"},
		{"missing url", `{}`, "url is required"},
		{"blank url", `{"url": "  "}`, "url is required"},
		{"bare at sign", `{"url": "@"}`, "url is required"},
		{"wrong type", `{"url": 5}`, "invalid JSON body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postScrape(t, srv.Handler(), tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			resp := decode(t, rec)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.wantErr, resp.Error)
		})
	}
	assert.False(t, called)
}

func TestScrapeResponseShape(t *testing.T) {
	var gotHandle string
	srv := New(testServerConfig(), scrapeFunc(func(ctx context.Context, handle string) models.ProfileResult {
		gotHandle = handle
		return models.ProfileResult{
			Handle:    handle,
			Followers: 10500,
			Status:    models.StatusComplete,
			Posts: []models.PostMetrics{
				{ID: "1", Views: 100, Likes: 10, Comments: 1, Saves: 2, Shares: 3, Link: "https://x/video/1",
					CommentList: []models.CommentEntry{{Author: "a", Text: "nice"}}},
				{ID: "2", Views: 50, Link: "https://x/video/2", CommentList: []models.CommentEntry{}, ExtractionError: "timeout"},
			},
		}
	}), logger.NewTestLogger())

	rec := postScrape(t, srv.Handler(), `{"url": "@someone"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "someone", gotHandle)

	assert.JSONEq(t, `{
		"success": true,
		"data": {
			"views": 150, "likes": 10, "comments": 1, "saves": 2, "shares": 3, "followers": 10500,
			"status": "complete",
			"videos": [
				{"id": "1", "views": 100, "likes": 10, "comments": 1, "saves": 2, "shares": 3,
				 "link": "https://x/video/1", "description": "",
				 "commentsArray": [{"author": "a", "comment": "nice"}]},
				{"id": "2", "views": 50, "likes": 0, "comments": 0, "saves": 0, "shares": 0,
				 "link": "https://x/video/2", "description": "", "commentsArray": [],
				 "extractionError": "timeout"}
			]
		}
	}`, rec.Body.String())
}

func TestScrapeFailureStillSucceeds(t *testing.T) {
	srv := New(testServerConfig(), scrapeFunc(func(ctx context.Context, handle string) models.ProfileResult {
		return models.EmptyResult(handle, models.StatusFollowersTimeout)
	}), logger.NewTestLogger())

	rec := postScrape(t, srv.Handler(), `{"url": "someone"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode(t, rec)
	assert.True(t, resp.Success)
	assert.JSONEq(t, `{"views":0,"likes":0,"comments":0,"saves":0,"shares":0,"followers":0,"videos":[],"status":"followers_timeout"}`, string(resp.Data))
}

func TestScrapeRequestIDPropagates(t *testing.T) {
	tl := logger.NewTestLogger()
	srv := New(testServerConfig(), scrapeFunc(func(ctx context.Context, handle string) models.ProfileResult {
		return models.EmptyResult(handle, models.StatusComplete)
	}), tl)

	req := httptest.NewRequest(http.MethodPost, "/scrape", strings.NewReader(`{"url":"a"}`))
	req.Header.Set(RequestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get(RequestIDHeader))

	var found bool
	for _, msg := range tl.GetMessagesByLevel("INFO") {
		if msg.Message == "HTTP request completed" {
			found = true
			assert.Equal(t, "req-123", msg.Fields["request_id"])
			assert.Equal(t, http.StatusOK, msg.Fields["status_code"])
			assert.Equal(t, "/scrape", msg.Fields["path"])
		}
	}
	assert.True(t, found)
}

func TestScrapeSessionLimit(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	srv := New(testServerConfig(), scrapeFunc(func(ctx context.Context, handle string) models.ProfileResult {
		close(started)
		<-release
		return models.EmptyResult(handle, models.StatusComplete)
	}), logger.NewTestLogger())

	var wg sync.WaitGroup
	wg.Add(1)
	var first *httptest.ResponseRecorder
	go func() {
		defer wg.Done()
		first = postScrape(t, srv.Handler(), `{"url":"one"}`)
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodPost, "/scrape", bytes.NewBufferString(`{"url":"two"}`)).WithContext(ctx)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.False(t, decode(t, rec).Success)

	close(release)
	wg.Wait()
	assert.Equal(t, http.StatusOK, first.Code)
}

func TestScrapePanicIsRecovered(t *testing.T) {
	tl := logger.NewTestLogger()
	srv := New(testServerConfig(), scrapeFunc(func(ctx context.Context, handle string) models.ProfileResult {
		panic("boom")
	}), tl)

	rec := postScrape(t, srv.Handler(), `{"url":"someone"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.True(t, tl.HasMessage("HTTP request server error"))

	// the session slot was released
	assert.True(t, srv.sessions.TryAcquire(1))
}

func TestScrapeEndToEndWithFakeBrowser(t *testing.T) {
	l := browsertest.NewLauncher()
	l.AddDocument("https://tt.test/@creator", browsertest.Document{HTML: `
		<strong data-e2e="followers-count">10.5K</strong>
		<div data-e2e="user-post-item"><a href="/@creator/video/1"><strong>2K</strong></a></div>
		<div data-e2e="user-post-item"><a href="/@creator/video/2"><strong>3K</strong></a></div>`})
	l.AddDocument("https://tt.test/@creator/video/1", browsertest.Document{HTML: `<strong data-e2e="like-count">100</strong>`})
	l.AddDocument("https://tt.test/@creator/video/2", browsertest.Document{HTML: `<strong data-e2e="like-count">1.5K</strong>`})

	cfg := config.DefaultConfig()
	cfg.Scrape.BaseURL = "https://tt.test"
	cfg.Scrape.PointerMoves = nil
	cfg.Scrape.ListingSettle = 0
	cfg.Scrape.PostSettle = 0
	cfg.Scrape.ScrollInterval = 0

	tl := logger.NewTestLogger()
	srv := New(testServerConfig(), scraper.New(l, nil, cfg, tl), tl)

	rec := postScrape(t, srv.Handler(), `{"url":"https://www.tiktok.com/@creator"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool       `json:"success"`
		Data    ScrapeData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, models.StatusComplete, resp.Data.Status)
	assert.Equal(t, int64(10500), resp.Data.Followers)
	assert.Equal(t, int64(5000), resp.Data.Views)
	assert.Equal(t, int64(1600), resp.Data.Likes)
	assert.Len(t, resp.Data.Videos, 2)
	assert.Equal(t, 1, l.Browsers()[0].CloseCalls())
}

func TestShutdown(t *testing.T) {
	srv := New(testServerConfig(), scrapeFunc(nil), logger.NewTestLogger())
	require.NoError(t, srv.Shutdown(context.Background()))
	assert.Error(t, srv.baseCtx.Err())
}

func TestRequestContextBudget(t *testing.T) {
	tests := []struct {
		name         string
		writeTimeout time.Duration
		want         time.Duration
	}{
		{"no write timeout", 0, 0},
		{"default write timeout", 20 * time.Minute, 20*time.Minute - responseMargin},
		{"short write timeout", 4 * time.Second, 2 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testServerConfig()
			cfg.WriteTimeout = tt.writeTimeout
			srv := New(cfg, scrapeFunc(nil), logger.NewTestLogger())

			start := time.Now()
			ctx, cancel := srv.requestContext(context.Background())
			defer cancel()

			deadline, ok := ctx.Deadline()
			if tt.want == 0 {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.WithinDuration(t, start.Add(tt.want), deadline, time.Second)
		})
	}
}

func TestScrapeStopsBeforeWriteTimeout(t *testing.T) {
	cfg := testServerConfig()
	cfg.WriteTimeout = 200 * time.Millisecond

	srv := New(cfg, scrapeFunc(func(ctx context.Context, handle string) models.ProfileResult {
		<-ctx.Done()
		return models.EmptyResult(handle, models.StatusCancelled)
	}), logger.NewTestLogger())

	start := time.Now()
	rec := postScrape(t, srv.Handler(), `{"url":"slow"}`)
	assert.Less(t, time.Since(start), cfg.WriteTimeout)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode(t, rec)
	assert.True(t, resp.Success)
	assert.JSONEq(t, `{"views":0,"likes":0,"comments":0,"saves":0,"shares":0,"followers":0,"videos":[],"status":"cancelled"}`, string(resp.Data))
}

func TestScrapeQueuedRequestGivesUpBeforeWriteTimeout(t *testing.T) {
	cfg := testServerConfig()
	cfg.WriteTimeout = 200 * time.Millisecond

	started := make(chan struct{})
	release := make(chan struct{})
	srv := New(cfg, scrapeFunc(func(ctx context.Context, handle string) models.ProfileResult {
		close(started)
		<-release
		return models.EmptyResult(handle, models.StatusComplete)
	}), logger.NewTestLogger())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		postScrape(t, srv.Handler(), `{"url":"one"}`)
	}()
	<-started

	rec := postScrape(t, srv.Handler(), `{"url":"two"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.False(t, decode(t, rec).Success)

	close(release)
	wg.Wait()
}
