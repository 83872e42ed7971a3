package aggregator

import (
	"sort"
	"strings"
	"time"

	"newsfeed/internal/models"
)

// KeyFunc возвращает ключ дедупликации статьи.
type KeyFunc func(models.Article) string

// KeyTitle - нормализованный заголовок.
func KeyTitle(a models.Article) string {
	return strings.ToLower(strings.TrimSpace(a.Title))
}

// KeyTitleSource - заголовок и источник: одну историю у разных изданий не склеивает.
func KeyTitleSource(a models.Article) string {
	return KeyTitle(a) + "-" + a.Source
}

// Dedupe оставляет первое вхождение каждого ключа.
func Dedupe(articles []models.Article, key KeyFunc) []models.Article {
	seen := make(map[string]struct{}, len(articles))
	out := make([]models.Article, 0, len(articles))
	for _, a := range articles {
		k := key(a)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, a)
	}
	return out
}

// SortByRecency упорядочивает статьи от новых к старым. Сортировка устойчивая,
// статьи без даты оказываются в конце.
func SortByRecency(articles []models.Article) {
	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].PublishedAt.After(articles[j].PublishedAt)
	})
}

// Paginate возвращает страницу page (с единицы) размером pageSize.
// Страница за пределами данных пуста.
func Paginate(articles []models.Article, page, pageSize int) []models.Article {
	if page < 1 || pageSize < 1 {
		return []models.Article{}
	}
	if len(articles) == 0 || page-1 > (len(articles)-1)/pageSize {
		return []models.Article{}
	}
	start := (page - 1) * pageSize
	end := min(start+pageSize, len(articles))
	return articles[start:end]
}

// EnsureIDs проставляет синтетический id статьям без id и повторам id.
// offset - позиция первой статьи в полной ленте.
func EnsureIDs(articles []models.Article, offset int, now time.Time) []models.Article {
	out := make([]models.Article, len(articles))
	seen := make(map[string]struct{}, len(articles))
	for i, a := range articles {
		if _, dup := seen[a.ID]; a.ID == "" || dup {
			a.ID = models.SyntheticID(offset+i, now)
		}
		seen[a.ID] = struct{}{}
		out[i] = a
	}
	return out
}
