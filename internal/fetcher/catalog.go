package fetcher

import (
	"context"
	"fmt"

	"newsfeed/internal/models"
)

// Catalog собирает планы вызовов адаптеров для каждой ленты.
// Порядок вызовов в плане определяет, какая из дублирующихся статей сохранится.
type Catalog struct {
	NewsAPI *NewsAPI
	NYTimes *NYTimes
	RSS     *RSS
	Feeds   []string
}

// NewCatalog создаёт каталог с адаптерами поверх одного прокси.
func NewCatalog(p Proxy, feeds []string) *Catalog {
	return &Catalog{
		NewsAPI: &NewsAPI{Proxy: p},
		NYTimes: &NYTimes{Proxy: p},
		RSS:     &RSS{Proxy: p},
		Feeds:   feeds,
	}
}

// LatestCalls - план ленты последних новостей.
func (c *Catalog) LatestCalls() []Call {
	calls := []Call{
		c.newswire("all", 20),
		{Name: "nytimes/mostpopular/7", Fetch: func(ctx context.Context) ([]models.Article, error) {
			return c.NYTimes.MostPopular(ctx, 7)
		}},
		c.topStories("home"),
		c.topStories("world"),
		c.topStories("science"),
		c.topStories("arts"),
		c.headlines(models.CategoryGeneral),
		c.headlines(models.CategoryTechnology),
		c.headlines(models.CategoryBusiness),
		c.headlines(models.CategoryEntertainment),
	}
	for _, feed := range c.Feeds {
		calls = append(calls, c.feed(feed))
	}
	return calls
}

// CategoryCalls - план ленты категории: заголовки NewsAPI, главные
// материалы раздела NYT и newswire того же раздела.
func (c *Catalog) CategoryCalls(category string) []Call {
	section := models.SectionFor(category)
	return []Call{
		c.headlines(category),
		c.topStories(section),
		c.newswire(section, 20),
	}
}

// BreakingCalls - план срочных новостей; из каждого вызова берётся первая статья.
func (c *Catalog) BreakingCalls() []Call {
	return []Call{
		c.headlines(models.CategoryGeneral),
		c.topStories("home"),
		c.newswire("all", 5),
	}
}

// SearchCall ищет term в архиве NewsAPI.
func (c *Catalog) SearchCall(term string) Call {
	return Call{Name: "newsapi/everything", Fetch: func(ctx context.Context) ([]models.Article, error) {
		return c.NewsAPI.Everything(ctx, term)
	}}
}

func (c *Catalog) headlines(category string) Call {
	return Call{Name: "newsapi/top-headlines/" + category, Fetch: func(ctx context.Context) ([]models.Article, error) {
		return c.NewsAPI.TopHeadlines(ctx, category)
	}}
}

func (c *Catalog) topStories(section string) Call {
	return Call{Name: "nytimes/topstories/" + section, Fetch: func(ctx context.Context) ([]models.Article, error) {
		return c.NYTimes.TopStories(ctx, section)
	}}
}

func (c *Catalog) newswire(section string, limit int) Call {
	return Call{Name: fmt.Sprintf("nytimes/newswire/%s/%d", section, limit), Fetch: func(ctx context.Context) ([]models.Article, error) {
		return c.NYTimes.Newswire(ctx, "all", section, limit, 0)
	}}
}

func (c *Catalog) feed(feedURL string) Call {
	return Call{Name: "rss/" + feedURL, Fetch: func(ctx context.Context) ([]models.Article, error) {
		return c.RSS.Feed(ctx, feedURL)
	}}
}
