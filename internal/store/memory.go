package store

import (
	"context"
	"sync"
	"time"
)

type counter struct {
	day   string
	count int
}

// Memory - хранилище в памяти процесса. Реализует Cache и Quota.
type Memory struct {
	mu       sync.Mutex
	entries  map[string]Entry
	counters map[string]*counter
}

func NewMemory() *Memory {
	return &Memory{
		entries:  make(map[string]Entry),
		counters: make(map[string]*counter),
	}
}

func (m *Memory) Get(_ context.Context, key string) (Entry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	return e, ok, nil
}

func (m *Memory) Set(_ context.Context, key string, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = e
	return nil
}

// Prune удаляет записи старше ttl и возвращает их число.
func (m *Memory) Prune(now time.Time, ttl time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k, e := range m.entries {
		if !e.Fresh(now, ttl) {
			delete(m.entries, k)
			n++
		}
	}
	return n
}

// Len возвращает число записей в кэше.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Memory) Acquire(_ context.Context, provider string, ceiling int, day string) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.counters[provider]
	if !ok {
		c = &counter{day: day}
		m.counters[provider] = c
	}
	if c.day != day {
		c.day = day
		c.count = 0
	}
	if c.count >= ceiling {
		return c.count, false, nil
	}
	c.count++
	return c.count, true, nil
}

func (m *Memory) Usage(_ context.Context, provider, day string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.counters[provider]
	if !ok || c.day != day {
		return 0, nil
	}
	return c.count, nil
}
