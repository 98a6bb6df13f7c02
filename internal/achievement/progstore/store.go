// Package progstore persists achievement progress between sessions.
//
// Two implementations are provided: [FileStore] keeps a single JSON document
// on disk and is the default, [PostgresStore] keeps the same document in a
// JSONB column for multi-host setups. Callers treat [ErrNotFound] as a fresh
// start, not a failure.
package progstore

import (
	"context"
	"errors"

	"github.com/strmhost/iris/internal/achievement"
)

// ErrNotFound is returned by Load when no progress has been saved yet.
var ErrNotFound = errors.New("progstore: no saved progress")

// Store loads and saves achievement progress.
type Store interface {
	Load(ctx context.Context) (achievement.Progress, error)
	Save(ctx context.Context, p achievement.Progress) error
}
