// Package fetcher содержит адаптеры источников новостей. Адаптеры ходят
// к провайдерам только через прокси и приводят ответы к models.Article.
package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/url"
	"strings"
	"time"

	"newsfeed/internal/logger"
	"newsfeed/internal/models"
	"newsfeed/internal/proxy"

	"github.com/microcosm-cc/bluemonday"
)

// Proxy - источник сырых ответов провайдеров: *proxy.Proxy в процессе
// или *proxy.Client для удалённого прокси.
type Proxy interface {
	Fetch(ctx context.Context, source, endpoint string, params url.Values) (*proxy.Response, error)
}

// FetchFunc возвращает статьи одного вызова адаптера.
type FetchFunc func(ctx context.Context) ([]models.Article, error)

// Call - именованный вызов адаптера в плане ленты.
type Call struct {
	Name  string
	Fetch FetchFunc
}

// Quiet выполняет fetch и превращает ошибку в пустой результат с записью в лог.
func Quiet(ctx context.Context, call Call) []models.Article {
	articles, err := call.Fetch(ctx)
	if err != nil {
		logger.Component("fetcher").WithField("call", call.Name).Errorf("Fetch failed: %v", err)
		return nil
	}
	return articles
}

var strict = bluemonday.StrictPolicy()

// plainText удаляет разметку и схлопывает пробелы.
func plainText(s string) string {
	if s == "" {
		return ""
	}
	clean := html.UnescapeString(strict.Sanitize(s))
	return strings.Join(strings.Fields(clean), " ")
}

// stripByline убирает префикс "By " из подписи NYT.
func stripByline(byline string) string {
	b := strings.TrimSpace(byline)
	if len(b) >= 3 && strings.EqualFold(b[:3], "by ") {
		b = strings.TrimSpace(b[3:])
	}
	return b
}

var timeLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02",
}

// parseTime разбирает дату публикации; нераспознанная дата даёт нулевое время.
func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func decode(resp *proxy.Response, source, endpoint string, v any) error {
	if err := json.Unmarshal(resp.Body, v); err != nil {
		return fmt.Errorf("decode %s %s: %w", source, endpoint, err)
	}
	return nil
}
