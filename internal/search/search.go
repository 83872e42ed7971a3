// Package search фильтрует уже загруженные статьи по подстроке.
package search

import (
	"context"
	"strings"

	"newsfeed/internal/models"
)

// Filter объединяет наборы без повторов id (первое вхождение побеждает)
// и возвращает статьи, у которых заголовок, описание, автор, источник
// или категория содержат term без учёта регистра. Пустой term ничего не находит,
// заглушки в результат не попадают.
func Filter(term string, sets ...[]models.Article) []models.Article {
	needle := strings.ToLower(strings.TrimSpace(term))
	out := []models.Article{}
	if needle == "" {
		return out
	}

	seen := make(map[string]struct{})
	for _, set := range sets {
		for _, a := range set {
			if _, dup := seen[a.ID]; dup || a.IsPlaceholder() {
				continue
			}
			seen[a.ID] = struct{}{}
			if matches(a, needle) {
				out = append(out, a)
			}
		}
	}
	return out
}

func matches(a models.Article, needle string) bool {
	for _, field := range []string{a.Title, a.Description, a.Author, a.Source, a.Category} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

// Archive ищет term у провайдера, например в NewsAPI everything.
type Archive func(ctx context.Context, term string) ([]models.Article, error)

// Remote дополняет resident-наборы результатами архива и фильтрует объединение.
// Ошибка архива не скрывает локальные совпадения.
func Remote(ctx context.Context, archive Archive, term string, sets ...[]models.Article) ([]models.Article, error) {
	if strings.TrimSpace(term) == "" {
		return []models.Article{}, nil
	}
	fetched, err := archive(ctx, term)
	return Filter(term, append(sets, fetched)...), err
}
