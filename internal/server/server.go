package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"newsfeed/internal/logger"
	"newsfeed/internal/metrics"
	"newsfeed/internal/models"
	"newsfeed/internal/proxy"
	"newsfeed/internal/search"
	"newsfeed/internal/session"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Fetcher - прокси к провайдерам.
type Fetcher interface {
	Fetch(ctx context.Context, source, endpoint string, params url.Values) (*proxy.Response, error)
}

// Feeds - ленты, которые строятся при каждом запросе.
type Feeds interface {
	LatestPage(ctx context.Context, page, pageSize int) models.Page
	Breaking(ctx context.Context) []models.Article
}

// Session - ленты, загруженные в память.
type Session interface {
	Category(ctx context.Context, category string, withBreaking bool) ([]models.Article, error)
	Search(term string) []models.Article
	SearchRemote(ctx context.Context, archive search.Archive, term string) ([]models.Article, error)
}

// Pinger проверяет доступность хранилища.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps - зависимости обработчиков. Store и Metrics необязательны.
type Deps struct {
	Proxy    Fetcher
	Feeds    Feeds
	Session  Session
	Archive  search.Archive
	Store    Pinger
	Metrics  *metrics.Metrics
	PageSize int
}

// Server хранит зависимости HTTP-обработчиков.
type Server struct {
	deps Deps
	log  *logger.Entry
}

func NewServer(deps Deps) *Server {
	if deps.PageSize < 1 {
		deps.PageSize = 20
	}
	return &Server{deps: deps, log: logger.Component("server")}
}

// Routes собирает роутер со всеми эндпоинтами.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logging)
	r.Use(middleware.Recoverer)

	r.Get("/api/news/{source}", s.GetProxy)
	r.Route("/api/feed", func(r chi.Router) {
		r.Get("/latest", s.GetLatest)
		r.Get("/category/{category}", s.GetCategory)
		r.Get("/breaking", s.GetBreaking)
	})
	r.Get("/api/search", s.Search)
	r.Get("/health", s.HealthCheck)
	if s.deps.Metrics != nil {
		r.Handle("/metrics", s.deps.Metrics.Handler())
	}
	return r
}

// GetProxy отдаёт сырой ответ провайдера source. Эндпоинт провайдера
// задаётся параметром endpoint, остальные параметры передаются как есть.
func (s *Server) GetProxy(w http.ResponseWriter, r *http.Request) {
	source := chi.URLParam(r, "source")
	query := r.URL.Query()

	resp, err := s.deps.Proxy.Fetch(r.Context(), source, query.Get("endpoint"), query)
	if err != nil {
		status, env := proxy.Envelope(err)
		if status >= http.StatusInternalServerError {
			s.log.WithField("source", source).Errorf("Proxy request failed: %v", err)
		}
		writeJSON(w, status, env)
		return
	}

	cache := "MISS"
	if resp.Cached {
		cache = "HIT"
	}
	w.Header().Set("Content-Type", resp.ContentType)
	w.Header().Set("X-Cache", cache)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(resp.Body)
}

// GetLatest возвращает страницу последних новостей с пагинацией.
func (s *Server) GetLatest(w http.ResponseWriter, r *http.Request) {
	page, err := intQuery(r, "page", 1, maxPage)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	pageSize, err := intQuery(r, "page_size", s.deps.PageSize, maxPage)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Feeds.LatestPage(r.Context(), page, pageSize))
}

// GetCategory возвращает ленту категории; breaking=true вставляет срочные новости.
func (s *Server) GetCategory(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	withBreaking, _ := strconv.ParseBool(r.URL.Query().Get("breaking"))

	articles, err := s.deps.Session.Category(r.Context(), category, withBreaking)
	switch {
	case errors.Is(err, session.ErrUnknownCategory):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		s.log.WithField("category", category).Errorf("Category feed failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to load category")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"category": models.NormalizeCategory(category),
		"items":    articles,
	})
}

func (s *Server) GetBreaking(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"items": s.deps.Feeds.Breaking(r.Context())})
}

// Search ищет по загруженным статьям; remote=true добавляет поиск по архиву NewsAPI.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("q")
	remote, _ := strconv.ParseBool(r.URL.Query().Get("remote"))

	var items []models.Article
	if remote && s.deps.Archive != nil {
		var err error
		items, err = s.deps.Session.SearchRemote(r.Context(), s.deps.Archive, term)
		if err != nil {
			s.log.WithField("term", term).Warnf("Archive search failed, serving resident matches: %v", err)
		}
	} else {
		items = s.deps.Session.Search(term)
	}

	writeJSON(w, http.StatusOK, map[string]any{"term": term, "items": items})
}

// HealthCheck отвечает 200 OK, если хранилище доступно, иначе 503.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store != nil {
		if err := s.deps.Store.Ping(r.Context()); err != nil {
			http.Error(w, "Store unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	_, _ = w.Write([]byte("OK"))
}

// maxPage ограничивает page и page_size; page_size сверх 100 движок урезает сам.
const maxPage = 10000

func intQuery(r *http.Request, name string, def, hi int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > hi {
		return 0, fmt.Errorf("%s must be an integer between 1 and %d", name, hi)
	}
	return n, nil
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, proxy.ErrorEnvelope{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Errorf("Failed to encode response: %v", err)
	}
}
