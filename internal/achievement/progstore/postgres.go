package progstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/strmhost/iris/internal/achievement"
)

// Schema is the SQL DDL for the achievement_progress table. Execute it via
// [PostgresStore.Migrate] or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS achievement_progress (
    channel    TEXT PRIMARY KEY,
    progress   JSONB NOT NULL DEFAULT '{}',
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// DB is the database interface used by [PostgresStore]. Both *pgxpool.Pool
// and *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore is a [Store] backed by a PostgreSQL database. The whole
// progress document is one JSONB value keyed by channel name, so several
// hosts can keep their sessions side by side.
type PostgresStore struct {
	db      DB
	channel string
}

// Compile-time interface check.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a PostgresStore scoped to channel. The caller is
// responsible for calling [PostgresStore.Migrate] to ensure the schema exists
// before issuing queries.
func NewPostgresStore(db DB, channel string) *PostgresStore {
	if channel == "" {
		channel = "default"
	}
	return &PostgresStore{db: db, channel: channel}
}

// Migrate executes the [Schema] DDL against the database.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("progstore: migrate: %w", err)
	}
	return nil
}

// Load fetches the progress document for the store's channel. A missing row
// yields [ErrNotFound].
func (s *PostgresStore) Load(ctx context.Context) (achievement.Progress, error) {
	const query = `SELECT progress FROM achievement_progress WHERE channel = $1`

	var p achievement.Progress
	var raw []byte
	err := s.db.QueryRow(ctx, query, s.channel).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return p, ErrNotFound
		}
		return p, fmt.Errorf("progstore: load %q: %w", s.channel, err)
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return achievement.Progress{}, fmt.Errorf("progstore: decode %q: %w", s.channel, err)
	}
	return p, nil
}

// Save upserts the progress document for the store's channel.
func (s *PostgresStore) Save(ctx context.Context, p achievement.Progress) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("progstore: encode: %w", err)
	}

	const query = `
		INSERT INTO achievement_progress (channel, progress)
		VALUES ($1, $2)
		ON CONFLICT (channel) DO UPDATE SET
			progress = EXCLUDED.progress,
			updated_at = now()`

	if _, err := s.db.Exec(ctx, query, s.channel, raw); err != nil {
		return fmt.Errorf("progstore: save %q: %w", s.channel, err)
	}
	return nil
}
