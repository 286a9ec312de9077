package idempotency

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const processedCommandsDDL = `CREATE TABLE IF NOT EXISTS processed_commands (
	event_id   text PRIMARY KEY,
	created_at timestamptz NOT NULL DEFAULT now()
)`

type postgresStore struct {
	dsn string
	ttl time.Duration

	// pool is lazily initialised on first use.
	mu   sync.Mutex
	pool *pgxpool.Pool
}

func newPostgresStore(dsn string, ttl time.Duration) *postgresStore {
	return &postgresStore{dsn: dsn, ttl: ttl}
}

func (s *postgresStore) ensurePool(ctx context.Context) (*pgxpool.Pool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pool != nil {
		return s.pool, nil
	}
	pool, err := pgxpool.New(ctx, s.dsn)
	if err != nil {
		return nil, err
	}
	if _, err := pool.Exec(ctx, processedCommandsDDL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create processed_commands: %w", err)
	}
	s.pool = pool
	return pool, nil
}

// Check uses INSERT ... ON CONFLICT to atomically deduplicate. Marks older
// than the TTL are overwritten as if they had never been seen.
func (s *postgresStore) Check(ctx context.Context, eventID string) (bool, error) {
	pool, err := s.ensurePool(ctx)
	if err != nil {
		return false, err
	}

	const q = `INSERT INTO processed_commands (event_id, created_at)
	           VALUES ($1, now())
	           ON CONFLICT (event_id) DO UPDATE SET created_at = now()
	           WHERE processed_commands.created_at < now() - make_interval(secs => $2)`

	tag, err := pool.Exec(ctx, q, KeyPrefix+eventID, s.ttl.Seconds())
	if err != nil {
		return false, err
	}
	// RowsAffected == 0 means a live row already existed (duplicate).
	return tag.RowsAffected() == 0, nil
}

func (s *postgresStore) Forget(ctx context.Context, eventID string) error {
	pool, err := s.ensurePool(ctx)
	if err != nil {
		return err
	}
	_, err = pool.Exec(ctx, `DELETE FROM processed_commands WHERE event_id = $1`, KeyPrefix+eventID)
	return err
}
