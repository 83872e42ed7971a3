package fetcher

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"

	"newsfeed/internal/logger"
	"newsfeed/internal/models"
	"newsfeed/internal/proxy"
)

const (
	nytSource     = "New York Times"
	preferredCrop = "mediumThreeByTwo440"
)

// NYTimes - адаптер API New York Times.
type NYTimes struct {
	Proxy Proxy
}

// TopStories возвращает главные материалы раздела (home по умолчанию).
func (a *NYTimes) TopStories(ctx context.Context, section string) ([]models.Article, error) {
	if section == "" {
		section = "home"
	}
	var body models.NYTStoriesResponse
	if err := a.fetch(ctx, "topstories", url.Values{"section": {section}}, &body); err != nil {
		return nil, err
	}
	articles := make([]models.Article, 0, len(body.Results))
	for _, item := range body.Results {
		articles = append(articles, mapNYTStory(item, false))
	}
	return articles, nil
}

// MostPopular возвращает самые просматриваемые статьи за 1, 7 или 30 дней.
func (a *NYTimes) MostPopular(ctx context.Context, period int) ([]models.Article, error) {
	var body models.NYTPopularResponse
	if err := a.fetch(ctx, "mostpopular", url.Values{"period": {strconv.Itoa(period)}}, &body); err != nil {
		return nil, err
	}
	articles := make([]models.Article, 0, len(body.Results))
	for _, item := range body.Results {
		articles = append(articles, mapNYTPopular(item))
	}
	return articles, nil
}

// Newswire возвращает поток свежих публикаций.
func (a *NYTimes) Newswire(ctx context.Context, source, section string, limit, offset int) ([]models.Article, error) {
	params := url.Values{
		"source":  {source},
		"section": {section},
		"limit":   {strconv.Itoa(limit)},
		"offset":  {strconv.Itoa(offset)},
	}
	var body models.NYTStoriesResponse
	if err := a.fetch(ctx, "newswire", params, &body); err != nil {
		return nil, err
	}
	articles := make([]models.Article, 0, len(body.Results))
	for _, item := range body.Results {
		articles = append(articles, mapNYTStory(item, true))
	}
	return articles, nil
}

// Sections возвращает разделы newswire. При ошибке провайдера
// используется статическая таблица разделов.
func (a *NYTimes) Sections(ctx context.Context) []string {
	var body models.NYTSectionsResponse
	if err := a.fetch(ctx, "sections", nil, &body); err != nil || len(body.Results) == 0 {
		if err != nil {
			logger.Component("fetcher").Warnf("Newswire sections unavailable, using static table: %v", err)
		}
		return staticSections()
	}
	sections := make([]string, 0, len(body.Results))
	for _, s := range body.Results {
		sections = append(sections, s.Section)
	}
	return sections
}

func staticSections() []string {
	keys := make([]string, 0, len(models.SectionCategories))
	for k := range models.SectionCategories {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (a *NYTimes) fetch(ctx context.Context, endpoint string, params url.Values, v any) error {
	resp, err := a.Proxy.Fetch(ctx, proxy.NYTimesName, endpoint, params)
	if err != nil {
		return fmt.Errorf("nytimes %s: %w", endpoint, err)
	}
	return decode(resp, proxy.NYTimesName, endpoint, v)
}

func mapNYTStory(item models.NYTStoryArticle, newswire bool) models.Article {
	title := item.Title
	if title == "" {
		title = item.Headline
	}
	id := item.URI
	if id == "" {
		id = item.URL
	}

	image := storyImage(item.Media())
	if image == "" && newswire {
		image = item.ThumbnailStandard
	}

	a := models.Article{
		ID:          id,
		Title:       plainText(title),
		Description: plainText(item.Abstract),
		URL:         item.URL,
		ImageURL:    image,
		PublishedAt: parseTime(item.PublishedDate),
		Source:      nytSource,
		Author:      stripByline(item.Byline),
		Category:    item.Section,
	}
	a.ApplyDefaults(nytSource)
	return a
}

// storyImage выбирает кадр mediumThreeByTwo440, иначе первый вариант.
func storyImage(media []models.NYTMultimedia) string {
	for _, m := range media {
		if m.Format == preferredCrop && m.URL != "" {
			return m.URL
		}
	}
	if len(media) > 0 {
		return media[0].URL
	}
	return ""
}

func mapNYTPopular(item models.NYTPopularArticle) models.Article {
	id := item.URI
	if id == "" {
		id = item.URL
	}
	a := models.Article{
		ID:          id,
		Title:       plainText(item.Title),
		Description: plainText(item.Abstract),
		URL:         item.URL,
		ImageURL:    popularImage(item.Media),
		PublishedAt: parseTime(item.PublishedDate),
		Source:      nytSource,
		Author:      stripByline(item.Byline),
		Category:    item.Section,
	}
	a.ApplyDefaults(nytSource)
	return a
}

// popularImage выбирает кадр mediumThreeByTwo440 первого медиаблока,
// иначе его последний вариант.
func popularImage(media []models.NYTMedia) string {
	if len(media) == 0 || len(media[0].Metadata) == 0 {
		return ""
	}
	meta := media[0].Metadata
	for _, m := range meta {
		if m.Format == preferredCrop && m.URL != "" {
			return m.URL
		}
	}
	return meta[len(meta)-1].URL
}
