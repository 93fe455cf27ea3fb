package settings

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the flat key/value settings backend scoped to one plugin.
type Store interface {
	GetAll(ctx context.Context) (map[string]string, error)
	SetMany(ctx context.Context, values map[string]string) error
}

const settingsTable = "plugin_settings"

type postgresStore struct {
	pool     *pgxpool.Pool
	pluginID string
}

// NewPostgresStore returns a Store over the shared plugin_settings table.
func NewPostgresStore(pool *pgxpool.Pool, pluginID string) Store {
	return &postgresStore{pool: pool, pluginID: pluginID}
}

// EnsureSchema creates the settings table when it does not exist yet.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS `+settingsTable+` (
		plugin     VARCHAR(64)  NOT NULL,
		key        VARCHAR(128) NOT NULL,
		value      TEXT         NOT NULL DEFAULT '',
		updated_at TIMESTAMPTZ  NOT NULL DEFAULT now(),
		PRIMARY KEY (plugin, key)
	)`)
	if err != nil {
		return fmt.Errorf("settings: ensure schema: %w", err)
	}
	return nil
}

func (s *postgresStore) GetAll(ctx context.Context) (map[string]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT key, value FROM `+settingsTable+` WHERE plugin = $1`, s.pluginID)
	if err != nil {
		return nil, fmt.Errorf("settings: query: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("settings: scan: %w", err)
		}
		values[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("settings: rows: %w", err)
	}
	return values, nil
}

func (s *postgresStore) SetMany(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for key, value := range values {
			batch.Queue(`INSERT INTO `+settingsTable+` (plugin, key, value, updated_at)
				VALUES ($1, $2, $3, now())
				ON CONFLICT (plugin, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
				s.pluginID, key, value)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("settings: upsert: %w", err)
	}
	return nil
}

type memoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore returns an in-process Store seeded with initial.
func NewMemoryStore(initial map[string]string) Store {
	values := make(map[string]string, len(initial))
	for k, v := range initial {
		values[k] = v
	}
	return &memoryStore{values: values}
}

func (s *memoryStore) GetAll(_ context.Context) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out, nil
}

func (s *memoryStore) SetMany(_ context.Context, values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, v := range values {
		s.values[k] = v
	}
	return nil
}
