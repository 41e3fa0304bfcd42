package db

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPool connects to Postgres and verifies the connection with a ping.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// EnsureSchema applies <basePath>/db/schema.sql. The file only uses
// IF NOT EXISTS statements so it is safe on every start.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, basePath string) error {
	content, err := os.ReadFile(SchemaPath(basePath))
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}
	if _, err := pool.Exec(ctx, string(content)); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func SchemaPath(basePath string) string {
	return filepath.Join(basePath, "db", "schema.sql")
}
