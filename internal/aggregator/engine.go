package aggregator

import (
	"context"
	"time"

	"newsfeed/internal/breaking"
	"newsfeed/internal/fetcher"
	"newsfeed/internal/logger"
	"newsfeed/internal/metrics"
	"newsfeed/internal/models"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	DefaultParallel = 6
)

// Planner отдаёт упорядоченные планы вызовов адаптеров.
type Planner interface {
	LatestCalls() []fetcher.Call
	CategoryCalls(category string) []fetcher.Call
	BreakingCalls() []fetcher.Call
}

// Engine строит ленты последних, категорийных и срочных новостей.
// Ошибки адаптеров не выходят наружу: они пишутся в лог и считаются в метриках.
type Engine struct {
	planner  Planner
	parallel int
	now      func() time.Time
	metrics  *metrics.Metrics
	log      *logger.Entry
}

type Option func(*Engine)

// WithParallelism ограничивает число одновременных вызовов адаптеров.
func WithParallelism(n int) Option {
	return func(e *Engine) { e.parallel = n }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func NewEngine(planner Planner, opts ...Option) *Engine {
	e := &Engine{
		planner:  planner,
		parallel: DefaultParallel,
		now:      time.Now,
		log:      logger.Component("aggregator"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Latest возвращает страницу ленты последних новостей.
func (e *Engine) Latest(ctx context.Context, page, pageSize int) []models.Article {
	return e.LatestPage(ctx, page, pageSize).Items
}

// LatestPage возвращает страницу вместе с пагинацией. Если ни один
// источник не ответил, страница пуста.
func (e *Engine) LatestPage(ctx context.Context, page, pageSize int) models.Page {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	pageSize = min(pageSize, MaxPageSize)
	page = max(page, 1)

	all := e.latest(ctx)
	items := Paginate(all, page, pageSize)
	items = EnsureIDs(items, (page-1)*pageSize, e.now())

	e.log.WithFields(logger.Fields{
		"page":      page,
		"page_size": pageSize,
		"total":     len(all),
	}).Debug("Latest page assembled")

	return models.Page{
		Items:      items,
		Pagination: models.NewPagination(len(all), page, pageSize),
	}
}

func (e *Engine) latest(ctx context.Context) []models.Article {
	results := e.settle(ctx, "latest", e.planner.LatestCalls())
	articles, contributed := Collect(results)
	if contributed == 0 {
		e.log.Error("All news sources failed to return articles")
		e.gauge("latest", 0)
		return []models.Article{}
	}

	articles = Dedupe(articles, KeyTitleSource)
	SortByRecency(articles)
	e.gauge("latest", len(articles))
	return articles
}

// ByCategory возвращает ленту категории. Если ни один источник не ответил,
// лента состоит из одной статьи-заглушки.
func (e *Engine) ByCategory(ctx context.Context, category string) []models.Article {
	category = models.NormalizeCategory(category)
	results := e.settle(ctx, "category", e.planner.CategoryCalls(category))

	articles, contributed := Collect(results)
	if contributed == 0 {
		e.log.WithField("category", category).Error("All news sources failed for category")
		e.gauge(category, 1)
		return []models.Article{models.Placeholder(category, e.now())}
	}

	articles = Dedupe(articles, KeyTitle)
	SortByRecency(articles)
	articles = EnsureIDs(articles, 0, e.now())
	e.gauge(category, len(articles))
	return articles
}

// Breaking возвращает до одной срочной статьи от каждого успешного вызова плана.
func (e *Engine) Breaking(ctx context.Context) []models.Article {
	results := e.settle(ctx, "breaking", e.planner.BreakingCalls())

	sets := make([][]models.Article, 0, len(results))
	for _, r := range results {
		if r.Err == nil {
			sets = append(sets, r.Articles)
		}
	}
	items := EnsureIDs(breaking.Top(sets), 0, e.now())
	if len(items) == 0 {
		e.log.Error("Failed to fetch breaking news from any source")
	}
	e.gauge("breaking", len(items))
	return items
}

func (e *Engine) settle(ctx context.Context, feed string, calls []fetcher.Call) []Result {
	results := Settle(ctx, calls, e.parallel)
	for _, r := range results {
		if r.Err == nil {
			continue
		}
		e.log.WithFields(logger.Fields{"feed": feed, "call": r.Name}).Errorf("Adapter call failed: %v", r.Err)
		if e.metrics != nil {
			e.metrics.AdapterFailures.WithLabelValues(r.Name).Inc()
		}
	}
	return results
}

func (e *Engine) gauge(feed string, n int) {
	if e.metrics != nil {
		e.metrics.FeedArticles.WithLabelValues(feed).Set(float64(n))
	}
}
