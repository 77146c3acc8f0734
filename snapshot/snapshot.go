// Package snapshot persists accuracy-cache state between process runs.
//
// A Store holds one cache snapshot: the per-agent accuracy ledger and the
// three eviction queues in order. Two implementations are provided: a local
// JSON file store and a Redis-backed store. Persistence happens outside the
// cache's hot-path lock, at scanner construction and teardown only.
//
// A missing snapshot is reported as ErrNoSnapshot; a corrupt one as
// ErrCorrupt. Callers treat both as a cold start rather than a failure.
package snapshot

import (
	"context"
	"errors"

	"github.com/patternsec/engine/cache"
)

// Common errors returned by snapshot stores.
var (
	// ErrNoSnapshot is returned by Load when no snapshot has been saved yet.
	ErrNoSnapshot = errors.New("snapshot: no snapshot found")

	// ErrCorrupt is returned by Load when a stored snapshot cannot be decoded.
	ErrCorrupt = errors.New("snapshot: corrupt snapshot")
)

// Store persists and retrieves cache snapshots.
//
// Implementations define the physical format; the logical content is fixed
// by cache.Snapshot. Stores must be safe for use from a single goroutine at
// a time; the scanner serializes access.
type Store interface {
	// Load retrieves the most recent snapshot.
	// Returns ErrNoSnapshot when nothing has been saved.
	Load(ctx context.Context) (*cache.Snapshot, error)

	// Save persists a snapshot, replacing any previous one.
	Save(ctx context.Context, snap *cache.Snapshot) error
}
