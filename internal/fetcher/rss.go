package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"newsfeed/internal/models"
	"newsfeed/internal/proxy"

	"github.com/mmcdole/gofeed"
)

// RSS - адаптер RSS/Atom/JSON-лент, разрешённых в конфигурации прокси.
type RSS struct {
	Proxy Proxy
}

// Feed загружает ленту feedURL через прокси и разбирает её gofeed.
func (a *RSS) Feed(ctx context.Context, feedURL string) ([]models.Article, error) {
	resp, err := a.Proxy.Fetch(ctx, proxy.RSSName, "feed", url.Values{"url": {feedURL}})
	if err != nil {
		return nil, fmt.Errorf("rss %s: %w", feedURL, err)
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", feedURL, err)
	}

	source := strings.TrimSpace(feed.Title)
	if source == "" {
		if u, err := url.Parse(feedURL); err == nil {
			source = u.Host
		}
	}

	articles := make([]models.Article, 0, len(feed.Items))
	for _, item := range feed.Items {
		articles = append(articles, mapFeedItem(feed, item, source))
	}
	return articles, nil
}

func mapFeedItem(feed *gofeed.Feed, item *gofeed.Item, source string) models.Article {
	id := item.GUID
	if id == "" {
		id = item.Link
	}

	a := models.Article{
		ID:          id,
		Title:       plainText(item.Title),
		Description: plainText(item.Description),
		Content:     plainText(item.Content),
		URL:         item.Link,
		ImageURL:    feedImage(feed, item),
		Source:      source,
		Author:      feedAuthor(item),
	}
	if a.Description == "" && a.Content != "" {
		a.Description = a.Content
	}

	switch {
	case item.PublishedParsed != nil:
		a.PublishedAt = item.PublishedParsed.UTC()
	case item.UpdatedParsed != nil:
		a.PublishedAt = item.UpdatedParsed.UTC()
	default:
		a.PublishedAt = parseTime(item.Published)
	}

	if len(item.Categories) > 0 {
		a.Category = item.Categories[0]
	}
	a.ApplyDefaults(source)
	return a
}

func feedImage(feed *gofeed.Feed, item *gofeed.Item) string {
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}
	for _, enc := range item.Enclosures {
		if strings.HasPrefix(enc.Type, "image/") && enc.URL != "" {
			return enc.URL
		}
	}
	if feed.Image != nil {
		return feed.Image.URL
	}
	return ""
}

func feedAuthor(item *gofeed.Item) string {
	for _, p := range item.Authors {
		if p != nil && p.Name != "" {
			return p.Name
		}
	}
	return ""
}
