package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"newsfeed/internal/store"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS proxy_cache (
    cache_key    TEXT PRIMARY KEY,
    payload      BLOB NOT NULL,
    content_type TEXT NOT NULL DEFAULT '',
    inserted_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS proxy_quota (
    provider TEXT PRIMARY KEY,
    day      TEXT NOT NULL,
    count    INTEGER NOT NULL
);
`

// SQLite - файловое хранилище кэша и квот для одного узла.
// Счётчики переживают перезапуск процесса.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite открывает базу по dsn и создаёт схему.
func OpenSQLite(dsn string) (*SQLite, error) {
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// один писатель: избегаем SQLITE_BUSY и разных баз для :memory:
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := conn.Exec(sqliteSchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLite{db: conn}, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLite) Get(ctx context.Context, key string) (store.Entry, bool, error) {
	var (
		e        store.Entry
		inserted int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT payload, content_type, inserted_at FROM proxy_cache WHERE cache_key = ?
	`, key).Scan(&e.Payload, &e.ContentType, &inserted)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Entry{}, false, nil
	}
	if err != nil {
		return store.Entry{}, false, err
	}
	e.InsertedAt = time.UnixMilli(inserted).UTC()
	return e, true, nil
}

func (s *SQLite) Set(ctx context.Context, key string, e store.Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO proxy_cache (cache_key, payload, content_type, inserted_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (cache_key) DO UPDATE
		SET payload = excluded.payload,
		    content_type = excluded.content_type,
		    inserted_at = excluded.inserted_at
	`, key, e.Payload, e.ContentType, e.InsertedAt.UnixMilli())
	return err
}

func (s *SQLite) Acquire(ctx context.Context, provider string, ceiling int, day string) (int, bool, error) {
	var used int
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO proxy_quota (provider, day, count)
		VALUES (?, ?, 1)
		ON CONFLICT (provider) DO UPDATE
		SET count = CASE WHEN proxy_quota.day <> excluded.day THEN 1 ELSE proxy_quota.count + 1 END,
		    day = excluded.day
		WHERE proxy_quota.day <> excluded.day OR proxy_quota.count < ?
		RETURNING count
	`, provider, day, ceiling).Scan(&used)
	if errors.Is(err, sql.ErrNoRows) {
		used, err = s.Usage(ctx, provider, day)
		return used, false, err
	}
	if err != nil {
		return 0, false, err
	}
	return used, true, nil
}

func (s *SQLite) Usage(ctx context.Context, provider, day string) (int, error) {
	var used int
	err := s.db.QueryRowContext(ctx, `
		SELECT count FROM proxy_quota WHERE provider = ? AND day = ?
	`, provider, day).Scan(&used)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return used, err
}
