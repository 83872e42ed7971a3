package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"newsfeed/internal/logger"
	"newsfeed/internal/metrics"
	"newsfeed/internal/models"
	"newsfeed/internal/proxy"
	"newsfeed/internal/search"
	"newsfeed/internal/server"
	"newsfeed/internal/session"
	"newsfeed/internal/store"

	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.Discard()
	os.Exit(m.Run())
}

type fakeFeeds struct {
	page, size int
}

func (f *fakeFeeds) LatestPage(_ context.Context, page, pageSize int) models.Page {
	f.page, f.size = page, pageSize
	items := []models.Article{{ID: "l1", Title: "Latest"}}
	return models.Page{Items: items, Pagination: models.NewPagination(1, page, pageSize)}
}

func (f *fakeFeeds) Breaking(context.Context) []models.Article {
	return []models.Article{{ID: "b1", Title: "Breaking", Category: models.CategoryBreaking}}
}

type fakeSession struct {
	withBreaking bool
}

func (f *fakeSession) Category(_ context.Context, category string, withBreaking bool) ([]models.Article, error) {
	if category == "weather" {
		return nil, session.ErrUnknownCategory
	}
	f.withBreaking = withBreaking
	return []models.Article{{ID: "c1", Title: "Cup final", Category: models.NormalizeCategory(category)}}, nil
}

func (f *fakeSession) Search(term string) []models.Article {
	return search.Filter(term, []models.Article{{ID: "s1", Title: "Alpha Launch"}, {ID: "s2", Title: "Beta Release"}})
}

func (f *fakeSession) SearchRemote(ctx context.Context, archive search.Archive, term string) ([]models.Article, error) {
	return search.Remote(ctx, archive, term, f.Search(term))
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func newTestServer(t *testing.T, deps server.Deps) *httptest.Server {
	t.Helper()
	if deps.Feeds == nil {
		deps.Feeds = &fakeFeeds{}
	}
	if deps.Session == nil {
		deps.Session = &fakeSession{}
	}
	srv := httptest.NewServer(server.NewServer(deps).Routes())
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

// upstream поднимает фальшивый NewsAPI и считает обращения к нему.
func upstream(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Header.Get("X-Api-Key") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"status":"error","code":"apiKeyInvalid","message":"Your API key is invalid."}`))
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write([]byte(`{"status":"ok","totalResults":0,"articles":[]}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newProxy(baseURL, key string, ceiling int, now func() time.Time) *proxy.Proxy {
	mem := store.NewMemory()
	p := proxy.New(mem, mem, nil, proxy.Options{Now: now})
	p.Register(proxy.NewsAPI{BaseURL: baseURL, APIKey: key}, ceiling)
	return p
}

func TestProxyEndpoint_CacheAndQuota(t *testing.T) {
	var calls atomic.Int32
	up := upstream(t, &calls)
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	p := newProxy(up.URL, "secret", 2, func() time.Time { return now })
	srv := newTestServer(t, server.Deps{Proxy: p})

	resp, body := get(t, srv.URL+"/api/news/newsapi?endpoint=top-headlines&category=business")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "MISS", resp.Header.Get("X-Cache"))
	require.Equal(t, "application/json; charset=utf-8", resp.Header.Get("Content-Type"))
	require.JSONEq(t, `{"status":"ok","totalResults":0,"articles":[]}`, string(body))
	require.NotEmpty(t, resp.Header.Get(server.RequestIDHeader))

	resp, _ = get(t, srv.URL+"/api/news/newsapi?endpoint=top-headlines&category=business")
	require.Equal(t, "HIT", resp.Header.Get("X-Cache"))
	require.Equal(t, int32(1), calls.Load())

	resp, _ = get(t, srv.URL+"/api/news/newsapi?endpoint=top-headlines&category=sports")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = get(t, srv.URL+"/api/news/newsapi?endpoint=top-headlines&category=health")
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	var env proxy.ErrorEnvelope
	require.NoError(t, json.Unmarshal(body, &env))
	require.Equal(t, "Rate limit protection", env.Error)
	require.NotEmpty(t, env.Message)
	require.Equal(t, int32(2), calls.Load())
}

func TestProxyEndpoint_Errors(t *testing.T) {
	var calls atomic.Int32
	up := upstream(t, &calls)
	p := newProxy(up.URL, "wrong", 10, time.Now)
	srv := newTestServer(t, server.Deps{Proxy: p})

	tests := []struct {
		name   string
		path   string
		status int
		want   string
	}{
		{name: "unknown source", path: "/api/news/guardian?endpoint=top-headlines", status: http.StatusBadRequest, want: "invalid source"},
		{name: "missing endpoint", path: "/api/news/newsapi", status: http.StatusBadRequest, want: "missing endpoint"},
		{name: "bad endpoint", path: "/api/news/newsapi?endpoint=sources/all", status: http.StatusBadRequest, want: "invalid endpoint"},
		{name: "upstream status mirrored", path: "/api/news/newsapi?endpoint=top-headlines", status: http.StatusUnauthorized, want: "Your API key is invalid."},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := get(t, srv.URL+tc.path)
			require.Equal(t, tc.status, resp.StatusCode)
			require.Equal(t, "application/json", resp.Header.Get("Content-Type"))
			var env proxy.ErrorEnvelope
			require.NoError(t, json.Unmarshal(body, &env))
			require.Contains(t, env.Error, tc.want)
		})
	}
}

func TestGetLatest(t *testing.T) {
	feeds := &fakeFeeds{}
	srv := newTestServer(t, server.Deps{Feeds: feeds, PageSize: 15})

	resp, body := get(t, srv.URL+"/api/feed/latest")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 1, feeds.page)
	require.Equal(t, 15, feeds.size)

	var page models.Page
	require.NoError(t, json.Unmarshal(body, &page))
	require.Len(t, page.Items, 1)
	require.Equal(t, 15, page.Pagination.ItemsPerPage)

	resp, _ = get(t, srv.URL+"/api/feed/latest?page=3&page_size=50")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 3, feeds.page)
	require.Equal(t, 50, feeds.size)

	resp, _ = get(t, srv.URL+"/api/feed/latest?page=zero")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = get(t, srv.URL+"/api/feed/latest?page_size=-1")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	feeds.page = 0
	resp, body = get(t, srv.URL+"/api/feed/latest?page=92233720368547760")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Contains(t, string(body), "page must be an integer between 1 and")
	require.Zero(t, feeds.page, "feeds must not be queried")
}

func TestGetCategory(t *testing.T) {
	sess := &fakeSession{}
	srv := newTestServer(t, server.Deps{Session: sess})

	resp, body := get(t, srv.URL+"/api/feed/category/Sports?breaking=true")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, sess.withBreaking)

	var out struct {
		Category string           `json:"category"`
		Items    []models.Article `json:"items"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	require.Equal(t, "sports", out.Category)
	require.Len(t, out.Items, 1)

	resp, _ = get(t, srv.URL+"/api/feed/category/weather")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetBreaking(t *testing.T) {
	srv := newTestServer(t, server.Deps{})
	resp, body := get(t, srv.URL+"/api/feed/breaking")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), `"category":"BREAKING"`)
}

func TestSearch(t *testing.T) {
	archive := func(context.Context, string) ([]models.Article, error) {
		return []models.Article{{ID: "r1", Title: "Launch from archive"}}, errors.New("partial")
	}
	srv := newTestServer(t, server.Deps{Archive: archive})

	var out struct {
		Term  string           `json:"term"`
		Items []models.Article `json:"items"`
	}

	_, body := get(t, srv.URL+"/api/search?q=LAUNCH")
	require.NoError(t, json.Unmarshal(body, &out))
	require.Len(t, out.Items, 1)
	require.Equal(t, "s1", out.Items[0].ID)

	_, body = get(t, srv.URL+"/api/search?q=launch&remote=true")
	require.NoError(t, json.Unmarshal(body, &out))
	require.Len(t, out.Items, 2)

	_, body = get(t, srv.URL+"/api/search?q=")
	require.NoError(t, json.Unmarshal(body, &out))
	require.Empty(t, out.Items)
}

func TestHealthCheck(t *testing.T) {
	srv := newTestServer(t, server.Deps{Store: pinger{}})
	resp, body := get(t, srv.URL+"/health")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "OK", string(body))

	down := newTestServer(t, server.Deps{Store: pinger{err: errors.New("db down")}})
	resp, _ = get(t, down.URL+"/health")
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New()
	m.ProxyRequests.WithLabelValues("newsapi", metrics.OutcomeCacheHit).Inc()
	srv := newTestServer(t, server.Deps{Metrics: m})

	resp, body := get(t, srv.URL+"/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), `newsfeed_proxy_requests_total{outcome="cache_hit",provider="newsapi"} 1`)
}

func TestRequestIDPropagates(t *testing.T) {
	srv := newTestServer(t, server.Deps{})
	req, err := http.NewRequest(http.MethodGet, srv.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set(server.RequestIDHeader, "req-42")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, "req-42", resp.Header.Get(server.RequestIDHeader))
}
