// Package session держит в памяти загруженные ленты: статьи категорий,
// подгружаемую ленту последних новостей и срочные новости.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"newsfeed/internal/breaking"
	"newsfeed/internal/logger"
	"newsfeed/internal/models"
	"newsfeed/internal/search"

	"golang.org/x/sync/errgroup"
)

var ErrUnknownCategory = errors.New("unknown category")

// Source - движок агрегации.
type Source interface {
	LatestPage(ctx context.Context, page, pageSize int) models.Page
	ByCategory(ctx context.Context, category string) []models.Article
	Breaking(ctx context.Context) []models.Article
}

// Snapshot - копия состояния сессии.
type Snapshot struct {
	Categories  map[string][]models.Article `json:"categories"`
	Latest      []models.Article            `json:"latest"`
	LatestPage  int                         `json:"latest_page"`
	HasMore     bool                        `json:"has_more"`
	Breaking    []models.Article            `json:"breaking"`
	RefreshedAt map[string]time.Time        `json:"refreshed_at"`
}

// Feed - состояние лент между запросами. Каждое обновление категории
// получает номер поколения; результат устаревшего обновления отбрасывается,
// так что побеждает последний запрос. Последние и срочные новости общие
// для всех категорий и версионируются отдельным счётчиком.
type Feed struct {
	src      Source
	pageSize int
	now      func() time.Time
	log      *logger.Entry

	mu          sync.Mutex
	rng         breaking.Rand
	generation  map[string]uint64
	shared      uint64
	categories  map[string][]models.Article
	refreshedAt map[string]time.Time
	latest      []models.Article
	latestPage  int
	hasMore     bool
	loadingMore bool
	urgent      []models.Article
}

func New(src Source, pageSize int, rng breaking.Rand) *Feed {
	return &Feed{
		src:         src,
		pageSize:    pageSize,
		now:         time.Now,
		log:         logger.Component("session"),
		rng:         rng,
		generation:  make(map[string]uint64),
		categories:  make(map[string][]models.Article),
		refreshedAt: make(map[string]time.Time),
		hasMore:     true,
	}
}

// Refresh загружает ленту категории, первую страницу последних новостей
// и срочные новости. Пустые результаты и заглушка при отказе всех источников
// не затирают уже загруженные данные.
func (f *Feed) Refresh(ctx context.Context, category string) error {
	cat, err := normalize(category)
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.generation[cat]++
	gen := f.generation[cat]
	f.shared++
	sharedGen := f.shared
	f.mu.Unlock()

	log := f.log.WithFields(logger.Fields{"category": cat, "generation": gen})
	log.Debug("Refreshing feed")

	var (
		articles []models.Article
		latest   models.Page
		urgent   []models.Article
		g        errgroup.Group
	)
	g.Go(func() error { articles = f.src.ByCategory(ctx, cat); return nil })
	g.Go(func() error { latest = f.src.LatestPage(ctx, 1, f.pageSize); return nil })
	g.Go(func() error { urgent = f.src.Breaking(ctx); return nil })
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case f.generation[cat] != gen:
		log.Info("Discarding superseded category refresh")
	case len(articles) == 0:
		log.Warn("Received 0 articles")
	case placeholderOnly(articles) && hasArticles(f.categories[cat]):
		log.Warn("All sources failed, keeping loaded articles")
	default:
		f.categories[cat] = articles
		f.refreshedAt[cat] = f.now()
	}

	if f.shared != sharedGen {
		log.Debug("Discarding superseded latest and breaking refresh")
	} else {
		if len(latest.Items) > 0 {
			f.latest = latest.Items
			f.latestPage = 1
			f.hasMore = true
		}
		if len(urgent) > 0 {
			f.urgent = urgent
		}
	}

	log.WithFields(logger.Fields{
		"articles": len(articles),
		"latest":   len(latest.Items),
		"breaking": len(urgent),
	}).Info("Feed refreshed")
	return nil
}

// Category возвращает загруженную ленту категории, при необходимости
// загружая её. withBreaking вставляет срочные новости в начало ленты.
func (f *Feed) Category(ctx context.Context, category string, withBreaking bool) ([]models.Article, error) {
	cat, err := normalize(category)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	_, resident := f.categories[cat]
	f.mu.Unlock()

	if !resident {
		if err := f.Refresh(ctx, cat); err != nil {
			return nil, err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	articles := append([]models.Article(nil), f.categories[cat]...)
	if withBreaking && len(f.urgent) > 0 {
		articles = breaking.Merge(articles, f.urgent, f.rng)
	}
	return articles, nil
}

// LoadMoreLatest подгружает следующую страницу последних новостей и
// добавляет только статьи с новыми id. Пустая страница означает конец ленты.
func (f *Feed) LoadMoreLatest(ctx context.Context) (int, error) {
	f.mu.Lock()
	if f.loadingMore || !f.hasMore {
		f.mu.Unlock()
		return 0, nil
	}
	f.loadingMore = true
	next := f.latestPage + 1
	f.mu.Unlock()

	page := f.src.LatestPage(ctx, next, f.pageSize)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.loadingMore = false

	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(page.Items) == 0 {
		f.hasMore = false
		return 0, nil
	}

	f.latestPage = next
	seen := make(map[string]struct{}, len(f.latest))
	for _, a := range f.latest {
		seen[a.ID] = struct{}{}
	}
	added := 0
	for _, a := range page.Items {
		if _, dup := seen[a.ID]; dup {
			continue
		}
		seen[a.ID] = struct{}{}
		f.latest = append(f.latest, a)
		added++
	}
	return added, nil
}

// Search ищет term по всем загруженным статьям.
func (f *Feed) Search(term string) []models.Article {
	return search.Filter(term, f.resident()...)
}

// SearchRemote дополняет поиск запросом к архиву провайдера.
func (f *Feed) SearchRemote(ctx context.Context, archive search.Archive, term string) ([]models.Article, error) {
	return search.Remote(ctx, archive, term, f.resident()...)
}

func (f *Feed) resident() [][]models.Article {
	f.mu.Lock()
	defer f.mu.Unlock()
	sets := make([][]models.Article, 0, len(models.Categories)+2)
	for _, c := range models.Categories {
		if articles, ok := f.categories[c]; ok {
			sets = append(sets, articles)
		}
	}
	return append(sets, f.latest, f.urgent)
}

func (f *Feed) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := Snapshot{
		Categories:  make(map[string][]models.Article, len(f.categories)),
		Latest:      append([]models.Article(nil), f.latest...),
		LatestPage:  f.latestPage,
		HasMore:     f.hasMore,
		Breaking:    append([]models.Article(nil), f.urgent...),
		RefreshedAt: make(map[string]time.Time, len(f.refreshedAt)),
	}
	for c, articles := range f.categories {
		s.Categories[c] = append([]models.Article(nil), articles...)
	}
	for c, t := range f.refreshedAt {
		s.RefreshedAt[c] = t
	}
	return s
}

func placeholderOnly(articles []models.Article) bool {
	for _, a := range articles {
		if !a.IsPlaceholder() {
			return false
		}
	}
	return true
}

func hasArticles(articles []models.Article) bool {
	return len(articles) > 0 && !placeholderOnly(articles)
}

// normalize принимает категорию словаря или известный раздел провайдера.
func normalize(category string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(category))
	if key == "" {
		return models.CategoryGeneral, nil
	}
	if models.IsCategory(key) {
		return key, nil
	}
	if c, ok := models.SectionCategories[key]; ok {
		return c, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownCategory, category)
}
