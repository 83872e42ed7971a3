package proxy

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Provider строит запрос к upstream по эндпоинту и параметрам клиента.
// Ошибки валидации оборачивают ErrInvalidEndpoint или ErrInvalidParams.
type Provider interface {
	Name() string
	Request(ctx context.Context, endpoint string, params url.Values) (*http.Request, error)
}

const (
	NewsAPIName = "newsapi"
	NYTimesName = "nytimes"
	RSSName     = "rss"
)

// NewsAPI - провайдер заголовков и полнотекстового поиска newsapi.org.
type NewsAPI struct {
	BaseURL string
	APIKey  string
}

func (p NewsAPI) Name() string { return NewsAPIName }

var newsAPIEndpoints = map[string]bool{
	"top-headlines":         true,
	"top-headlines/sources": true,
	"everything":            true,
}

func (p NewsAPI) Request(ctx context.Context, endpoint string, params url.Values) (*http.Request, error) {
	if !newsAPIEndpoints[endpoint] {
		return nil, fmt.Errorf("%w: newsapi has no endpoint %q", ErrInvalidEndpoint, endpoint)
	}
	if endpoint == "everything" && params.Get("q") == "" && params.Get("sources") == "" {
		return nil, fmt.Errorf("%w: everything requires q or sources", ErrInvalidParams)
	}

	u := strings.TrimRight(p.BaseURL, "/") + "/" + endpoint
	if q := params.Encode(); q != "" {
		u += "?" + q
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Api-Key", p.APIKey)
	return req, nil
}

// NYTimes - провайдер API New York Times: topstories, mostpopular,
// newswire и список разделов newswire.
type NYTimes struct {
	BaseURL string
	APIKey  string
}

func (p NYTimes) Name() string { return NYTimesName }

func (p NYTimes) Request(ctx context.Context, endpoint string, params url.Values) (*http.Request, error) {
	var (
		path  string
		query = url.Values{}
	)

	switch endpoint {
	case "topstories":
		section, err := segment(params, "section", "home")
		if err != nil {
			return nil, err
		}
		path = fmt.Sprintf("topstories/v2/%s.json", section)
	case "mostpopular":
		period := params.Get("period")
		switch period {
		case "":
			period = "1"
		case "1", "7", "30":
		default:
			return nil, fmt.Errorf("%w: period must be 1, 7 or 30", ErrInvalidParams)
		}
		path = fmt.Sprintf("mostpopular/v2/viewed/%s.json", period)
	case "newswire":
		source, err := segment(params, "source", "all")
		if err != nil {
			return nil, err
		}
		section, err := segment(params, "section", "all")
		if err != nil {
			return nil, err
		}
		limit, err := intParam(params, "limit", 20, 1, 500)
		if err != nil {
			return nil, err
		}
		offset, err := intParam(params, "offset", 0, 0, 10000)
		if err != nil {
			return nil, err
		}
		path = fmt.Sprintf("news/v3/content/%s/%s.json", source, section)
		query.Set("limit", strconv.Itoa(limit))
		query.Set("offset", strconv.Itoa(offset))
	case "sections":
		path = "news/v3/content/section-list.json"
	default:
		return nil, fmt.Errorf("%w: use topstories, mostpopular, newswire or sections", ErrInvalidEndpoint)
	}

	query.Set("api-key", p.APIKey)
	u := strings.TrimRight(p.BaseURL, "/") + "/" + path + "?" + query.Encode()
	return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
}

// RSS пропускает запросы только к лентам из конфигурации.
type RSS struct {
	Feeds []string
}

func (p RSS) Name() string { return RSSName }

func (p RSS) Request(ctx context.Context, endpoint string, params url.Values) (*http.Request, error) {
	if endpoint != "feed" {
		return nil, fmt.Errorf("%w: rss supports only feed", ErrInvalidEndpoint)
	}
	feedURL := params.Get("url")
	if feedURL == "" {
		return nil, fmt.Errorf("%w: url is required", ErrInvalidParams)
	}
	allowed := false
	for _, f := range p.Feeds {
		if f == feedURL {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fmt.Errorf("%w: feed %s is not configured", ErrInvalidParams, feedURL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8")
	return req, nil
}

// segment читает параметр, который подставляется в путь URL.
func segment(params url.Values, name, def string) (string, error) {
	v := strings.TrimSpace(params.Get(name))
	if v == "" {
		return def, nil
	}
	if strings.ContainsAny(v, "/\\?#") || v == "." || v == ".." {
		return "", fmt.Errorf("%w: bad %s %q", ErrInvalidParams, name, v)
	}
	return url.PathEscape(strings.ToLower(v)), nil
}

func intParam(params url.Values, name string, def, lo, hi int) (int, error) {
	v := params.Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("%w: %s must be between %d and %d", ErrInvalidParams, name, lo, hi)
	}
	return n, nil
}
