package db

import (
	"context"
	"errors"
	"fmt"

	"newsfeed/internal/store"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema создаёт таблицы кэша ответов и дневных счётчиков квоты.
const Schema = `
CREATE TABLE IF NOT EXISTS proxy_cache (
	cache_key    TEXT PRIMARY KEY,
	payload      BYTEA NOT NULL,
	content_type TEXT NOT NULL DEFAULT '',
	inserted_at  TIMESTAMP WITH TIME ZONE NOT NULL
);

CREATE TABLE IF NOT EXISTS proxy_quota (
	provider TEXT PRIMARY KEY,
	day      TEXT NOT NULL,
	count    INTEGER NOT NULL
);
`

// Database инкапсулирует пул соединений к PostgreSQL.
// Реализует store.Cache и store.Quota для нескольких экземпляров прокси.
type Database struct {
	Pool *pgxpool.Pool
}

// NewDB создаёт новый пул соединений по connString и возвращает Database.
func NewDB(ctx context.Context, connString string) (*Database, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	return &Database{Pool: pool}, nil
}

// Close закрывает пул соединений.
func (db *Database) Close() {
	db.Pool.Close()
}

// Migrate применяет Schema.
func (db *Database) Migrate(ctx context.Context) error {
	_, err := db.Pool.Exec(ctx, Schema)
	return err
}

// Ping проверяет доступность базы.
func (db *Database) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

func (db *Database) Get(ctx context.Context, key string) (store.Entry, bool, error) {
	var e store.Entry
	err := db.Pool.QueryRow(ctx, `
        SELECT payload, content_type, inserted_at
        FROM proxy_cache
        WHERE cache_key = $1
    `, key).Scan(&e.Payload, &e.ContentType, &e.InsertedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.Entry{}, false, nil
	}
	if err != nil {
		return store.Entry{}, false, err
	}
	return e, true, nil
}

// Set сохраняет ответ; существующая запись с тем же ключом перезаписывается.
func (db *Database) Set(ctx context.Context, key string, e store.Entry) error {
	_, err := db.Pool.Exec(ctx, `
        INSERT INTO proxy_cache (cache_key, payload, content_type, inserted_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (cache_key) DO UPDATE
        SET payload = EXCLUDED.payload,
            content_type = EXCLUDED.content_type,
            inserted_at = EXCLUDED.inserted_at
    `, key, e.Payload, e.ContentType, e.InsertedAt)
	return err
}

// Acquire увеличивает счётчик одним запросом. Если строка не вернулась,
// потолок на сегодня уже достигнут.
func (db *Database) Acquire(ctx context.Context, provider string, ceiling int, day string) (int, bool, error) {
	var used int
	err := db.Pool.QueryRow(ctx, `
        INSERT INTO proxy_quota (provider, day, count)
        VALUES ($1, $2, 1)
        ON CONFLICT (provider) DO UPDATE
        SET count = CASE WHEN proxy_quota.day <> EXCLUDED.day THEN 1 ELSE proxy_quota.count + 1 END,
            day = EXCLUDED.day
        WHERE proxy_quota.day <> EXCLUDED.day OR proxy_quota.count < $3
        RETURNING count
    `, provider, day, ceiling).Scan(&used)
	if errors.Is(err, pgx.ErrNoRows) {
		used, err = db.Usage(ctx, provider, day)
		return used, false, err
	}
	if err != nil {
		return 0, false, err
	}
	return used, true, nil
}

func (db *Database) Usage(ctx context.Context, provider, day string) (int, error) {
	var used int
	err := db.Pool.QueryRow(ctx, `
        SELECT count FROM proxy_quota WHERE provider = $1 AND day = $2
    `, provider, day).Scan(&used)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return used, err
}
