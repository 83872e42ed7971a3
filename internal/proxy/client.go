package proxy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client обращается к HTTP-интерфейсу удалённого прокси и возвращает
// те же ошибки, что и Proxy.Fetch.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) Fetch(ctx context.Context, source, endpoint string, params url.Values) (*Response, error) {
	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("endpoint", endpoint)

	u := fmt.Sprintf("%s/api/news/%s?%s", c.BaseURL, url.PathEscape(source), q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: proxy: %w", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: read proxy body: %w", ErrUpstreamUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		var env ErrorEnvelope
		_ = json.Unmarshal(body, &env)
		return nil, fromEnvelope(source, resp.StatusCode, env)
	}

	return &Response{
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		Cached:      resp.Header.Get("X-Cache") == "HIT",
	}, nil
}
