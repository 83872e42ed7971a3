// Package store описывает состояние прокси - кэш ответов и дневные счётчики
// запросов - за интерфейсами, чтобы его можно было вынести во внешнее хранилище.
package store

import (
	"context"
	"time"
)

// Entry - закэшированный ответ upstream.
type Entry struct {
	Payload     []byte
	ContentType string
	InsertedAt  time.Time
}

// Fresh сообщает, моложе ли запись ttl на момент now.
func (e Entry) Fresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.InsertedAt) < ttl
}

// Cache хранит ответы по ключу (provider, endpoint, query).
type Cache interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, e Entry) error
}

// Quota ведёт дневные счётчики запросов по провайдерам.
//
// Acquire атомарно сбрасывает счётчик, если day отличается от сохранённого,
// и увеличивает его, пока он меньше ceiling. ok=false означает, что потолок
// достигнут и счётчик не изменился.
type Quota interface {
	Acquire(ctx context.Context, provider string, ceiling int, day string) (used int, ok bool, err error)
	Usage(ctx context.Context, provider, day string) (int, error)
}

// Day возвращает ключ календарного дня для счётчиков квоты.
func Day(t time.Time) string {
	return t.Format("2006-01-02")
}
