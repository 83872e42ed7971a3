// Package aggregator собирает ленты из результатов нескольких адаптеров:
// параллельный вызов с терпимостью к частичным отказам, дедупликация,
// сортировка по времени и пагинация.
package aggregator

import (
	"context"
	"fmt"

	"newsfeed/internal/fetcher"
	"newsfeed/internal/models"

	"golang.org/x/sync/errgroup"
)

// Result - исход одного вызова адаптера: статьи или ошибка.
type Result struct {
	Name     string
	Articles []models.Article
	Err      error
}

// Contributed сообщает, дал ли вызов хотя бы одну статью.
func (r Result) Contributed() bool {
	return r.Err == nil && len(r.Articles) > 0
}

// Settle выполняет вызовы параллельно, не более limit одновременно, и ждёт
// завершения всех. Отказ одного вызова не отменяет остальные. Результаты
// возвращаются в порядке calls.
func Settle(ctx context.Context, calls []fetcher.Call, limit int) []Result {
	results := make([]Result, len(calls))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, call := range calls {
		g.Go(func() error {
			results[i] = run(ctx, call)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func run(ctx context.Context, call fetcher.Call) (res Result) {
	res.Name = call.Name
	defer func() {
		if r := recover(); r != nil {
			res.Articles = nil
			res.Err = fmt.Errorf("%s panicked: %v", call.Name, r)
		}
	}()
	res.Articles, res.Err = call.Fetch(ctx)
	return res
}

// Collect склеивает статьи успешных вызовов в порядке плана.
func Collect(results []Result) (articles []models.Article, contributed int) {
	for _, r := range results {
		if !r.Contributed() {
			continue
		}
		contributed++
		articles = append(articles, r.Articles...)
	}
	return articles, contributed
}
