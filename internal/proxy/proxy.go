// Package proxy централизует исходящие запросы к провайдерам новостей:
// кэш ответов, дневные квоты и повтор при сетевых ошибках.
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

	"newsfeed/internal/logger"
	"newsfeed/internal/metrics"
	"newsfeed/internal/store"
)

const (
	DefaultTTL        = 5 * time.Minute
	DefaultMaxRetries = 2
	DefaultBaseDelay  = time.Second

	maxBodySize = 10 << 20
)

// Doer - HTTP-клиент upstream; *http.Client подходит.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Response - сырой ответ провайдера.
type Response struct {
	Body        []byte
	ContentType string
	Cached      bool
}

// Options задаёт кэш, повторы и источники времени.
type Options struct {
	TTL        time.Duration
	MaxRetries int
	BaseDelay  time.Duration
	Now        func() time.Time
	Sleep      func(ctx context.Context, d time.Duration) error
	Metrics    *metrics.Metrics
}

type registration struct {
	provider Provider
	ceiling  int
}

// Proxy - ограничивающий и кэширующий прокси к провайдерам.
type Proxy struct {
	providers map[string]registration
	cache     store.Cache
	quota     store.Quota
	client    Doer
	opts      Options
	log       *logger.Entry
}

// New создаёт прокси. Нулевые TTL, BaseDelay, Now и Sleep заменяются
// значениями по умолчанию; отрицательный TTL отключает кэш.
func New(cache store.Cache, quota store.Quota, client Doer, opts Options) *Proxy {
	if opts.TTL == 0 {
		opts.TTL = DefaultTTL
	}
	if opts.BaseDelay == 0 {
		opts.BaseDelay = DefaultBaseDelay
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Sleep == nil {
		opts.Sleep = sleep
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Proxy{
		providers: make(map[string]registration),
		cache:     cache,
		quota:     quota,
		client:    client,
		opts:      opts,
		log:       logger.Component("proxy"),
	}
}

// Register подключает провайдера с дневным потолком запросов.
func (p *Proxy) Register(provider Provider, dailyQuota int) {
	p.providers[provider.Name()] = registration{provider: provider, ceiling: dailyQuota}
}

// Providers возвращает имена зарегистрированных провайдеров.
func (p *Proxy) Providers() []string {
	names := make([]string, 0, len(p.providers))
	for name := range p.providers {
		names = append(names, name)
	}
	return names
}

// CacheKey строит ключ кэша из провайдера, эндпоинта и отсортированных параметров.
func CacheKey(source, endpoint string, params url.Values) string {
	return source + "-" + endpoint + "-" + params.Encode()
}

// Fetch выполняет запрос к провайдеру source. Порядок: валидация, кэш,
// квота, upstream. Свежая запись кэша не расходует квоту.
func (p *Proxy) Fetch(ctx context.Context, source, endpoint string, params url.Values) (*Response, error) {
	name := strings.ToLower(strings.TrimSpace(source))
	reg, ok := p.providers[name]
	if !ok {
		p.count(name, metrics.OutcomeInvalid)
		return nil, fmt.Errorf("%w: %q", ErrInvalidSource, source)
	}
	if endpoint == "" {
		p.count(name, metrics.OutcomeInvalid)
		return nil, ErrMissingEndpoint
	}

	clean := url.Values{}
	for k, v := range params {
		if k != "endpoint" {
			clean[k] = v
		}
	}

	req, err := reg.provider.Request(ctx, endpoint, clean)
	if err != nil {
		p.count(name, metrics.OutcomeInvalid)
		return nil, err
	}
	req.Header.Set("User-Agent", "newsfeed/1.0")

	log := p.log.WithFields(logger.Fields{"provider": name, "endpoint": endpoint})
	key := CacheKey(name, endpoint, clean)
	now := p.opts.Now()

	entry, hit, err := p.cache.Get(ctx, key)
	if err != nil {
		log.Warnf("Cache lookup failed: %v", err)
	} else if hit && entry.Fresh(now, p.opts.TTL) {
		log.Debugf("Serving from cache (expires in %s)", (p.opts.TTL - now.Sub(entry.InsertedAt)).Round(time.Second))
		p.count(name, metrics.OutcomeCacheHit)
		return &Response{Body: entry.Payload, ContentType: entry.ContentType, Cached: true}, nil
	}

	used, ok, err := p.quota.Acquire(ctx, name, reg.ceiling, store.Day(now))
	if err != nil {
		return nil, fmt.Errorf("acquire %s quota: %w", name, err)
	}
	if p.opts.Metrics != nil {
		p.opts.Metrics.QuotaUsed.WithLabelValues(name).Set(float64(used))
	}
	if !ok {
		log.Warnf("Daily request limit reached (%d/%d)", used, reg.ceiling)
		p.count(name, metrics.OutcomeRateLimited)
		return nil, fmt.Errorf("%w: daily %s request limit reached, please try again later", ErrQuotaExceeded, name)
	}
	log.Infof("Upstream request %d/%d", used, reg.ceiling)

	start := time.Now()
	resp, err := p.do(ctx, name, req)
	if p.opts.Metrics != nil {
		p.opts.Metrics.UpstreamDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		log.Errorf("Upstream unreachable: %v", err)
		p.count(name, metrics.OutcomeNetworkErr)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		p.count(name, metrics.OutcomeNetworkErr)
		return nil, fmt.Errorf("%w: read %s body: %w", ErrUpstreamUnavailable, name, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		upstreamErr := &UpstreamError{
			Provider: name,
			Status:   resp.StatusCode,
			Message:  errorMessage(body, resp.StatusCode, name),
		}
		log.WithField("status", resp.StatusCode).Errorf("Upstream error: %s", upstreamErr.Message)
		p.count(name, metrics.OutcomeUpstreamErr)
		return nil, upstreamErr
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/json"
	}
	if err := p.cache.Set(ctx, key, store.Entry{Payload: body, ContentType: contentType, InsertedAt: now}); err != nil {
		log.Warnf("Cache store failed: %v", err)
	}
	p.count(name, metrics.OutcomeUpstream)
	return &Response{Body: body, ContentType: contentType}, nil
}

// do повторяет запрос только при транспортных ошибках,
// удваивая задержку на каждой попытке.
func (p *Proxy) do(ctx context.Context, name string, req *http.Request) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= p.opts.MaxRetries; attempt++ {
		resp, err := p.client.Do(req.Clone(ctx))
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrUpstreamUnavailable, name, ctx.Err())
		}

		if attempt < p.opts.MaxRetries {
			wait := p.opts.BaseDelay * (1 << uint(attempt))
			p.log.WithFields(logger.Fields{
				"provider": name,
				"attempt":  attempt + 1,
				"backoff":  wait.String(),
			}).Warnf("Upstream request failed, retrying: %v", err)
			if p.opts.Metrics != nil {
				p.opts.Metrics.Retries.WithLabelValues(name).Inc()
			}
			if err := p.opts.Sleep(ctx, wait); err != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrUpstreamUnavailable, name, err)
			}
		}
	}
	return nil, fmt.Errorf("%w: %s after %d attempts: %w", ErrUpstreamUnavailable, name, p.opts.MaxRetries+1, lastErr)
}

func (p *Proxy) count(provider, outcome string) {
	if p.opts.Metrics == nil {
		return
	}
	p.opts.Metrics.ProxyRequests.WithLabelValues(provider, outcome).Inc()
}

// errorMessage извлекает сообщение из тела ошибки NewsAPI или NYT.
func errorMessage(body []byte, status int, name string) string {
	var parsed struct {
		Message string `json:"message"`
		Fault   struct {
			FaultString string `json:"faultstring"`
		} `json:"fault"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Message != "" {
			return parsed.Message
		}
		if parsed.Fault.FaultString != "" {
			return parsed.Fault.FaultString
		}
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return fmt.Sprintf("Failed to fetch data from %s", name)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
