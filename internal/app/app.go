// Package app собирает компоненты сервиса по конфигурации.
package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"time"

	"newsfeed/internal/aggregator"
	"newsfeed/internal/config"
	"newsfeed/internal/db"
	"newsfeed/internal/fetcher"
	"newsfeed/internal/logger"
	"newsfeed/internal/metrics"
	"newsfeed/internal/proxy"
	"newsfeed/internal/queue"
	"newsfeed/internal/server"
	"newsfeed/internal/session"
	"newsfeed/internal/store"
	"newsfeed/internal/worker"
)

// App - собранный сервис.
type App struct {
	Config  *config.Config
	Metrics *metrics.Metrics
	Proxy   fetcher.Proxy
	Catalog *fetcher.Catalog
	Engine  *aggregator.Engine
	Feed    *session.Feed

	health  server.Pinger
	memory  *store.Memory
	closers []func() error
}

// New открывает хранилище, настраивает прокси и адаптеры.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg, Metrics: metrics.New()}

	if cfg.Server.ProxyURL != "" {
		logger.Log.Infof("Using remote proxy at %s", cfg.Server.ProxyURL)
		a.Proxy = proxy.NewClient(cfg.Server.ProxyURL)
	} else {
		cache, quota, err := a.openStore(ctx)
		if err != nil {
			return nil, err
		}
		p := proxy.New(cache, quota, &http.Client{Timeout: cfg.HTTPTimeout}, proxy.Options{
			TTL:        cfg.Cache.TTL,
			MaxRetries: cfg.Retry.MaxRetries,
			BaseDelay:  cfg.Retry.BaseDelay,
			Metrics:    a.Metrics,
		})
		p.Register(proxy.NewsAPI{BaseURL: cfg.NewsAPI.BaseURL, APIKey: cfg.NewsAPI.APIKey}, cfg.NewsAPI.DailyQuota)
		p.Register(proxy.NYTimes{BaseURL: cfg.NYTimes.BaseURL, APIKey: cfg.NYTimes.APIKey}, cfg.NYTimes.DailyQuota)
		p.Register(proxy.RSS{Feeds: cfg.RSSFeeds}, cfg.RSS.DailyQuota)
		a.Proxy = p
	}

	a.Catalog = fetcher.NewCatalog(a.Proxy, cfg.RSSFeeds)
	a.Engine = aggregator.NewEngine(a.Catalog, aggregator.WithMetrics(a.Metrics))
	seed := uint64(time.Now().UnixNano())
	a.Feed = session.New(a.Engine, cfg.PageSize, rand.New(rand.NewPCG(seed, seed>>1)))
	return a, nil
}

func (a *App) openStore(ctx context.Context) (store.Cache, store.Quota, error) {
	switch a.Config.Store.Driver {
	case "postgres":
		database, err := db.NewDB(ctx, a.Config.Store.DSN)
		if err != nil {
			return nil, nil, err
		}
		if err := database.Migrate(ctx); err != nil {
			database.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		a.health = database
		a.closers = append(a.closers, func() error { database.Close(); return nil })
		logger.Log.Info("Proxy state stored in PostgreSQL")
		return database, database, nil
	case "sqlite":
		lite, err := db.OpenSQLite(a.Config.Store.DSN)
		if err != nil {
			return nil, nil, err
		}
		a.health = lite
		a.closers = append(a.closers, lite.Close)
		logger.Log.Info("Proxy state stored in SQLite")
		return lite, lite, nil
	default:
		a.memory = store.NewMemory()
		return a.memory, a.memory, nil
	}
}

// Server возвращает HTTP-сервер над компонентами приложения.
func (a *App) Server() *server.Server {
	return server.NewServer(server.Deps{
		Proxy:    a.Proxy,
		Feeds:    a.Engine,
		Session:  a.Feed,
		Archive:  a.Catalog.NewsAPI.Everything,
		Store:    a.health,
		Metrics:  a.Metrics,
		PageSize: a.Config.PageSize,
	})
}

// StartBackground запускает поллер, очередь и воркеров обновления лент.
// Без rabbitmq.url используется очередь в памяти.
func (a *App) StartBackground(ctx context.Context) error {
	cfg := a.Config

	var (
		pub  queue.Publisher
		cons queue.Consumer
	)
	if cfg.RabbitMQ.URL != "" {
		producer, err := queue.NewProducer(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue)
		if err != nil {
			return fmt.Errorf("rabbitmq producer: %w", err)
		}
		consumer, err := queue.NewConsumer(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue, cfg.Workers)
		if err != nil {
			producer.Close()
			return fmt.Errorf("rabbitmq consumer: %w", err)
		}
		pub, cons = producer, consumer
		a.closers = append(a.closers, producer.Close, consumer.Close)
	} else {
		local := queue.NewLocal(len(cfg.Categories)*2, cfg.Workers)
		pub, cons = local, local
		a.closers = append(a.closers, local.Close)
	}

	wrk := worker.NewWorker(a.Feed, cfg.PollInterval)
	if err := cons.Consume(ctx, wrk.HandleTask); err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	go fetcher.StartPolling(ctx, pub, cfg.Categories, cfg.PollInterval)

	if a.memory != nil && cfg.Cache.TTL > 0 {
		go a.pruneCache(ctx)
	}
	return nil
}

func (a *App) pruneCache(ctx context.Context) {
	ttl := a.Config.Cache.TTL
	ticker := time.NewTicker(ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := a.memory.Prune(now, ttl); n > 0 {
				logger.Log.WithField("entries", n).Debug("Pruned expired cache entries")
			}
		}
	}
}

// Close освобождает ресурсы в обратном порядке.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
