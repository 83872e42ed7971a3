package fetcher

import (
	"context"
	"fmt"
	"net/url"

	"newsfeed/internal/models"
	"newsfeed/internal/proxy"
)

const removedTitle = "[Removed]"

// newsAPICategories - категории, которые понимает top-headlines.
var newsAPICategories = map[string]bool{
	models.CategoryGeneral:       true,
	models.CategoryBusiness:      true,
	models.CategoryTechnology:    true,
	models.CategoryScience:       true,
	models.CategoryHealth:        true,
	models.CategorySports:        true,
	models.CategoryEntertainment: true,
}

// NewsAPI - адаптер newsapi.org.
type NewsAPI struct {
	Proxy Proxy
}

// TopHeadlines возвращает заголовки категории. Все статьи получают
// запрошенную категорию; категорий вне словаря NewsAPI нет, и вызов
// для них ничего не возвращает.
func (a *NewsAPI) TopHeadlines(ctx context.Context, category string) ([]models.Article, error) {
	cat := models.NormalizeCategory(category)
	if !newsAPICategories[cat] {
		return nil, nil
	}

	params := url.Values{"language": {"en"}}
	if cat != models.CategoryGeneral {
		params.Set("category", cat)
	}
	return a.fetch(ctx, "top-headlines", params, cat)
}

// Everything ищет по всему архиву NewsAPI, новые статьи первыми.
func (a *NewsAPI) Everything(ctx context.Context, query string) ([]models.Article, error) {
	params := url.Values{
		"q":        {query},
		"sortBy":   {"publishedAt"},
		"language": {"en"},
	}
	return a.fetch(ctx, "everything", params, models.CategoryGeneral)
}

func (a *NewsAPI) fetch(ctx context.Context, endpoint string, params url.Values, category string) ([]models.Article, error) {
	resp, err := a.Proxy.Fetch(ctx, proxy.NewsAPIName, endpoint, params)
	if err != nil {
		return nil, fmt.Errorf("newsapi %s: %w", endpoint, err)
	}

	var body models.NewsAPIResponse
	if err := decode(resp, proxy.NewsAPIName, endpoint, &body); err != nil {
		return nil, err
	}
	if body.Status == "error" {
		return nil, fmt.Errorf("newsapi %s: %s: %s", endpoint, body.Code, body.Message)
	}

	articles := make([]models.Article, 0, len(body.Articles))
	for _, item := range body.Articles {
		if item.Title == removedTitle {
			continue
		}
		articles = append(articles, mapNewsAPI(item, category))
	}
	return articles, nil
}

func mapNewsAPI(item models.NewsAPIArticle, category string) models.Article {
	source := item.Source.Name
	if source == "" {
		source = "News API"
	}
	a := models.Article{
		ID:          item.URL,
		Title:       plainText(item.Title),
		Description: plainText(item.Description),
		Content:     plainText(item.Content),
		URL:         item.URL,
		ImageURL:    item.URLToImage,
		PublishedAt: parseTime(item.PublishedAt),
		Source:      source,
		Author:      plainText(item.Author),
		Category:    category,
	}
	a.ApplyDefaults(models.DefaultAuthor)
	return a
}
