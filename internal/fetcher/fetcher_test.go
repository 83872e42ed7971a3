package fetcher_test

import (
	"context"
	"errors"
	"net/url"
	"os"
	"sync"
	"testing"
	"time"

	"newsfeed/internal/fetcher"
	"newsfeed/internal/logger"
	"newsfeed/internal/models"
	"newsfeed/internal/proxy"

	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.Discard()
	os.Exit(m.Run())
}

type request struct {
	source   string
	endpoint string
	params   url.Values
}

// fakeProxy отдаёт тело по паре source/endpoint и запоминает запросы.
type fakeProxy struct {
	mu       sync.Mutex
	bodies   map[string]string
	err      error
	requests []request
}

func (f *fakeProxy) Fetch(_ context.Context, source, endpoint string, params url.Values) (*proxy.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, request{source, endpoint, params})
	if f.err != nil {
		return nil, f.err
	}
	body, ok := f.bodies[source+"/"+endpoint]
	if !ok {
		return nil, &proxy.UpstreamError{Provider: source, Status: 404, Message: "Not Found"}
	}
	return &proxy.Response{Body: []byte(body), ContentType: "application/json"}, nil
}

func TestNewsAPI_TopHeadlines(t *testing.T) {
	p := &fakeProxy{bodies: map[string]string{
		"newsapi/top-headlines": `{
			"status": "ok",
			"totalResults": 3,
			"articles": [
				{"source": {"id": null, "name": "Reuters"}, "author": null, "title": "Markets <b>rally</b>",
				 "description": "Stocks &amp; bonds <p>rise</p>", "url": "https://reuters.test/a",
				 "urlToImage": null, "publishedAt": "2024-03-10T12:00:00Z", "content": null},
				{"source": {"id": null, "name": "[Removed]"}, "title": "[Removed]", "url": "https://removed.test"},
				{"source": {"id": "bbc", "name": ""}, "author": "Jane Roe", "title": "", "url": "https://bbc.test/b",
				 "urlToImage": "https://img.test/b.jpg", "publishedAt": "not a date"}
			]
		}`,
	}}
	a := &fetcher.NewsAPI{Proxy: p}

	articles, err := a.TopHeadlines(context.Background(), "Business")
	require.NoError(t, err)
	require.Len(t, articles, 2)

	first := articles[0]
	require.Equal(t, "https://reuters.test/a", first.ID)
	require.Equal(t, "Markets rally", first.Title)
	require.Equal(t, "Stocks & bonds rise", first.Description)
	require.Equal(t, models.PlaceholderImage, first.ImageURL)
	require.Equal(t, "Reuters", first.Source)
	require.Equal(t, models.DefaultAuthor, first.Author)
	require.Equal(t, models.CategoryBusiness, first.Category)
	require.True(t, time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC).Equal(first.PublishedAt))

	second := articles[1]
	require.Equal(t, models.DefaultTitle, second.Title)
	require.Equal(t, models.DefaultDescription, second.Description)
	require.Equal(t, "News API", second.Source)
	require.True(t, second.PublishedAt.IsZero())

	require.Len(t, p.requests, 1)
	require.Equal(t, "business", p.requests[0].params.Get("category"))
	require.Equal(t, "en", p.requests[0].params.Get("language"))
}

func TestNewsAPI_TopHeadlinesGeneralOmitsCategory(t *testing.T) {
	p := &fakeProxy{bodies: map[string]string{"newsapi/top-headlines": `{"status":"ok","articles":[]}`}}
	a := &fetcher.NewsAPI{Proxy: p}

	articles, err := a.TopHeadlines(context.Background(), "general")
	require.NoError(t, err)
	require.Empty(t, articles)
	require.False(t, p.requests[0].params.Has("category"))
}

func TestNewsAPI_LifestyleIsNotRequested(t *testing.T) {
	p := &fakeProxy{}
	a := &fetcher.NewsAPI{Proxy: p}

	articles, err := a.TopHeadlines(context.Background(), "lifestyle")
	require.NoError(t, err)
	require.Empty(t, articles)
	require.Empty(t, p.requests)
}

func TestNewsAPI_ErrorStatus(t *testing.T) {
	p := &fakeProxy{bodies: map[string]string{
		"newsapi/everything": `{"status":"error","code":"parametersMissing","message":"Required parameters are missing."}`,
	}}
	a := &fetcher.NewsAPI{Proxy: p}

	_, err := a.Everything(context.Background(), "mars")
	require.ErrorContains(t, err, "parametersMissing")
	require.Equal(t, "publishedAt", p.requests[0].params.Get("sortBy"))
	require.Equal(t, "mars", p.requests[0].params.Get("q"))
}

func TestNewsAPI_ProxyErrorIsWrapped(t *testing.T) {
	p := &fakeProxy{err: proxy.ErrQuotaExceeded}
	a := &fetcher.NewsAPI{Proxy: p}

	_, err := a.TopHeadlines(context.Background(), "sports")
	require.ErrorIs(t, err, proxy.ErrQuotaExceeded)
}

func TestNYTimes_TopStories(t *testing.T) {
	p := &fakeProxy{bodies: map[string]string{
		"nytimes/topstories": `{
			"status": "OK",
			"results": [
				{"uri": "nyt://article/1", "url": "https://nyt.test/1", "section": "Arts", "title": "Opening night",
				 "abstract": "A review.", "byline": "By John Smith", "published_date": "2024-03-10T05:00:03-04:00",
				 "multimedia": [
					{"url": "https://img.test/large.jpg", "format": "superJumbo"},
					{"url": "https://img.test/440.jpg", "format": "mediumThreeByTwo440"}
				 ]},
				{"uri": "nyt://article/2", "url": "https://nyt.test/2", "section": "weather", "title": "",
				 "byline": "", "published_date": "2024-03-09T05:00:00-05:00", "multimedia": null}
			]
		}`,
	}}
	a := &fetcher.NYTimes{Proxy: p}

	articles, err := a.TopStories(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, articles, 2)
	require.Equal(t, "home", p.requests[0].params.Get("section"))

	first := articles[0]
	require.Equal(t, "nyt://article/1", first.ID)
	require.Equal(t, "https://img.test/440.jpg", first.ImageURL)
	require.Equal(t, "John Smith", first.Author)
	require.Equal(t, "New York Times", first.Source)
	require.Equal(t, models.CategoryEntertainment, first.Category)
	require.True(t, time.Date(2024, 3, 10, 9, 0, 3, 0, time.UTC).Equal(first.PublishedAt))

	second := articles[1]
	require.Equal(t, models.DefaultTitle, second.Title)
	require.Equal(t, models.PlaceholderImage, second.ImageURL)
	require.Equal(t, "New York Times", second.Author)
	require.Equal(t, models.CategoryGeneral, second.Category)
}

func TestNYTimes_MostPopularImageFallback(t *testing.T) {
	p := &fakeProxy{bodies: map[string]string{
		"nytimes/mostpopular": `{
			"status": "OK",
			"results": [
				{"uri": "nyt://popular/1", "url": "https://nyt.test/p1", "section": "Well", "title": "Sleep better",
				 "abstract": "Tips.", "byline": "By A. Writer", "published_date": "2024-03-08",
				 "media": [{"type": "image", "media-metadata": [
					{"url": "https://img.test/thumb.jpg", "format": "Standard Thumbnail"},
					{"url": "https://img.test/293.jpg", "format": "mediumThreeByTwo210"}
				 ]}]}
			]
		}`,
	}}
	a := &fetcher.NYTimes{Proxy: p}

	articles, err := a.MostPopular(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, articles, 1)
	require.Equal(t, "7", p.requests[0].params.Get("period"))
	require.Equal(t, "https://img.test/293.jpg", articles[0].ImageURL)
	require.Equal(t, models.CategoryHealth, articles[0].Category)
	require.True(t, time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC).Equal(articles[0].PublishedAt))
}

func TestNYTimes_Newswire(t *testing.T) {
	p := &fakeProxy{bodies: map[string]string{
		"nytimes/newswire": `{
			"status": "OK",
			"results": [
				{"uri": "nyt://wire/1", "url": "https://nyt.test/w1", "section": "Technology", "title": "",
				 "headline": "Chip makers expand", "abstract": "", "byline": "BY KATE DOE",
				 "published_date": "2024-03-10T10:00:00-05:00",
				 "thumbnail_standard": "https://img.test/thumb.jpg", "multimedia": ""}
			]
		}`,
	}}
	a := &fetcher.NYTimes{Proxy: p}

	articles, err := a.Newswire(context.Background(), "all", "technology", 20, 40)
	require.NoError(t, err)
	require.Len(t, articles, 1)

	got := articles[0]
	require.Equal(t, "Chip makers expand", got.Title)
	require.Equal(t, models.DefaultDescription, got.Description)
	require.Equal(t, "https://img.test/thumb.jpg", got.ImageURL)
	require.Equal(t, "KATE DOE", got.Author)
	require.Equal(t, models.CategoryTechnology, got.Category)

	params := p.requests[0].params
	require.Equal(t, "technology", params.Get("section"))
	require.Equal(t, "20", params.Get("limit"))
	require.Equal(t, "40", params.Get("offset"))
}

func TestNYTimes_SectionsFallback(t *testing.T) {
	ok := &fakeProxy{bodies: map[string]string{
		"nytimes/sections": `{"status":"OK","results":[{"section":"world","display_name":"World"},{"section":"u.s.","display_name":"U.S."}]}`,
	}}
	require.Equal(t, []string{"world", "u.s."}, (&fetcher.NYTimes{Proxy: ok}).Sections(context.Background()))

	failing := &fakeProxy{err: proxy.ErrUpstreamUnavailable}
	sections := (&fetcher.NYTimes{Proxy: failing}).Sections(context.Background())
	require.Len(t, sections, len(models.SectionCategories))
	require.Contains(t, sections, "home")
	require.IsIncreasing(t, sections)
}

func TestRSS_Feed(t *testing.T) {
	const feedURL = "https://feeds.test/world.xml"
	p := &fakeProxy{bodies: map[string]string{
		"rss/feed": `<?xml version="1.0" encoding="UTF-8"?>
			<rss version="2.0">
				<channel>
					<title>World Wire</title>
					<item>
						<title>Test Title</title>
						<description><![CDATA[<p>Test <em>Description</em></p>]]></description>
						<pubDate>Wed, 03 May 2023 15:04:05 +0000</pubDate>
						<link>http://example.com/test</link>
						<guid>urn:test:1</guid>
						<category>Science</category>
						<enclosure url="http://example.com/test.jpg" type="image/jpeg" length="100"/>
					</item>
					<item>
						<title>No date</title>
						<link>http://example.com/nodate</link>
					</item>
				</channel>
			</rss>`,
	}}
	a := &fetcher.RSS{Proxy: p}

	articles, err := a.Feed(context.Background(), feedURL)
	require.NoError(t, err)
	require.Len(t, articles, 2)
	require.Equal(t, feedURL, p.requests[0].params.Get("url"))

	first := articles[0]
	require.Equal(t, "urn:test:1", first.ID)
	require.Equal(t, "Test Title", first.Title)
	require.Equal(t, "Test Description", first.Description)
	require.Equal(t, "World Wire", first.Source)
	require.Equal(t, "World Wire", first.Author)
	require.Equal(t, "http://example.com/test.jpg", first.ImageURL)
	require.Equal(t, models.CategoryScience, first.Category)
	require.True(t, time.Date(2023, 5, 3, 15, 4, 5, 0, time.UTC).Equal(first.PublishedAt))

	second := articles[1]
	require.Equal(t, "http://example.com/nodate", second.ID)
	require.Equal(t, models.CategoryGeneral, second.Category)
	require.True(t, second.PublishedAt.IsZero())
}

func TestRSS_InvalidFeed(t *testing.T) {
	p := &fakeProxy{bodies: map[string]string{"rss/feed": `not a feed`}}
	_, err := (&fetcher.RSS{Proxy: p}).Feed(context.Background(), "https://feeds.test/bad")
	require.ErrorContains(t, err, "parse feed")
}

func TestQuiet(t *testing.T) {
	failing := fetcher.Call{Name: "broken", Fetch: func(context.Context) ([]models.Article, error) {
		return nil, errors.New("boom")
	}}
	require.Nil(t, fetcher.Quiet(context.Background(), failing))

	working := fetcher.Call{Name: "ok", Fetch: func(context.Context) ([]models.Article, error) {
		return []models.Article{{ID: "a"}}, nil
	}}
	require.Len(t, fetcher.Quiet(context.Background(), working), 1)
}

func names(calls []fetcher.Call) []string {
	out := make([]string, 0, len(calls))
	for _, c := range calls {
		out = append(out, c.Name)
	}
	return out
}

func TestCatalog_Plans(t *testing.T) {
	c := fetcher.NewCatalog(&fakeProxy{}, []string{"https://feeds.test/a.xml"})

	require.Equal(t, []string{
		"nytimes/newswire/all/20",
		"nytimes/mostpopular/7",
		"nytimes/topstories/home",
		"nytimes/topstories/world",
		"nytimes/topstories/science",
		"nytimes/topstories/arts",
		"newsapi/top-headlines/general",
		"newsapi/top-headlines/technology",
		"newsapi/top-headlines/business",
		"newsapi/top-headlines/entertainment",
		"rss/https://feeds.test/a.xml",
	}, names(c.LatestCalls()))

	require.Equal(t, []string{
		"newsapi/top-headlines/entertainment",
		"nytimes/topstories/arts",
		"nytimes/newswire/arts/20",
	}, names(c.CategoryCalls("entertainment")))

	require.Equal(t, []string{
		"newsapi/top-headlines/general",
		"nytimes/topstories/home",
		"nytimes/newswire/all/5",
	}, names(c.BreakingCalls()))
}
