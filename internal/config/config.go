package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"newsfeed/internal/models"

	"gopkg.in/yaml.v3"
)

// Provider описывает upstream-провайдера и его дневную квоту.
type Provider struct {
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	DailyQuota int    `yaml:"daily_quota"`
}

// Config хранит настройки прокси, агрегатора и фонового обновления.
type Config struct {
	LogLevel string `yaml:"log_level"`

	Server struct {
		Addr string `yaml:"addr"`
		// ProxyURL задаёт удалённый прокси; пусто - прокси работает в процессе.
		ProxyURL string `yaml:"proxy_url"`
	} `yaml:"server"`

	NewsAPI Provider `yaml:"newsapi"`
	NYTimes Provider `yaml:"nytimes"`
	RSS     Provider `yaml:"rss"`

	RSSFeeds []string `yaml:"rss_feeds"`

	Cache struct {
		TTL time.Duration `yaml:"ttl"`
	} `yaml:"cache"`

	Retry struct {
		MaxRetries int           `yaml:"max_retries"`
		BaseDelay  time.Duration `yaml:"base_delay"`
	} `yaml:"retry"`

	HTTPTimeout time.Duration `yaml:"http_timeout"`

	Store struct {
		Driver string `yaml:"driver"`
		DSN    string `yaml:"dsn"`
	} `yaml:"store"`

	RabbitMQ struct {
		URL   string `yaml:"url"`
		Queue string `yaml:"queue"`
	} `yaml:"rabbitmq"`

	PollInterval time.Duration `yaml:"poll_interval"`
	Workers      int           `yaml:"workers"`
	Categories   []string      `yaml:"categories"`
	PageSize     int           `yaml:"page_size"`
}

// Default возвращает конфигурацию со значениями по умолчанию.
func Default() *Config {
	cfg := &Config{LogLevel: "info"}
	cfg.Server.Addr = ":8080"
	cfg.NewsAPI = Provider{BaseURL: "https://newsapi.org/v2", DailyQuota: 90}
	cfg.NYTimes = Provider{BaseURL: "https://api.nytimes.com/svc", DailyQuota: 450}
	cfg.RSS = Provider{DailyQuota: 1000}
	cfg.Cache.TTL = 5 * time.Minute
	cfg.Retry.MaxRetries = 2
	cfg.Retry.BaseDelay = time.Second
	cfg.HTTPTimeout = 10 * time.Second
	cfg.Store.Driver = "memory"
	cfg.RabbitMQ.Queue = "feed_refresh"
	cfg.PollInterval = 10 * time.Minute
	cfg.Workers = 5
	cfg.Categories = append([]string(nil), models.Categories...)
	cfg.PageSize = 20
	return cfg
}

// Validate проверяет интервалы, квоты, драйвер хранилища и URL RSS-лент.
func (cfg *Config) Validate() error {
	if cfg.PollInterval < 5*time.Second {
		return errors.New("poll interval must be ≥ 5 seconds")
	}
	if cfg.Cache.TTL < 0 {
		return errors.New("cache ttl must not be negative")
	}
	if cfg.Retry.MaxRetries < 0 || cfg.Retry.MaxRetries > 5 {
		return errors.New("max retries must be between 0 and 5")
	}
	for name, p := range map[string]Provider{"newsapi": cfg.NewsAPI, "nytimes": cfg.NYTimes, "rss": cfg.RSS} {
		if p.DailyQuota < 1 {
			return fmt.Errorf("%s daily quota must be positive", name)
		}
	}
	switch cfg.Store.Driver {
	case "memory":
	case "postgres", "sqlite":
		if cfg.Store.DSN == "" {
			return fmt.Errorf("store %s requires dsn", cfg.Store.Driver)
		}
	default:
		return fmt.Errorf("unknown store driver: %s", cfg.Store.Driver)
	}
	for _, u := range cfg.RSSFeeds {
		if _, err := url.ParseRequestURI(u); err != nil {
			return fmt.Errorf("invalid RSS URL: %s", u)
		}
	}
	for _, c := range cfg.Categories {
		if !models.IsCategory(c) {
			return fmt.Errorf("unknown category: %s", c)
		}
	}
	if cfg.Workers < 1 {
		return errors.New("workers must be ≥ 1")
	}
	if cfg.PageSize < 1 || cfg.PageSize > 100 {
		return errors.New("page size must be between 1 and 100")
	}
	return nil
}

// LoadConfig читает YAML-файл по пути path поверх значений по умолчанию
// и применяет переопределения из окружения.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	applyEnv(cfg)
	return cfg, nil
}

// LoadOrDefault ведёт себя как LoadConfig, но без файла возвращает Default.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		cfg := Default()
		applyEnv(cfg)
		return cfg, nil
	}
	return LoadConfig(path)
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("NEWS_API_KEY"); v != "" {
		cfg.NewsAPI.APIKey = v
	}
	if v := os.Getenv("NYT_API_KEY"); v != "" {
		cfg.NYTimes.APIKey = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Store.DSN = v
		if cfg.Store.Driver == "memory" {
			cfg.Store.Driver = "postgres"
		}
	}
	if v := os.Getenv("RABBITMQ_URL"); v != "" {
		cfg.RabbitMQ.URL = v
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
}
