// Package heroes holds the hero id to display name table. The table is
// fetched once, shared immutably by every consumer, and concurrent first
// calls collapse into a single upstream fetch.
package heroes

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"dota-tracker/internal/stratz"
)

// Source is the slice of the upstream client the loader needs.
type Source interface {
	Heroes(ctx context.Context) ([]stratz.HeroPayload, error)
}

// Table is an immutable id to name lookup.
type Table struct {
	names map[int]string
}

func NewTable(heroes []stratz.HeroPayload) *Table {
	names := make(map[int]string, len(heroes))
	for _, h := range heroes {
		if h.ID != 0 && h.DisplayName != "" {
			names[h.ID] = h.DisplayName
		}
	}
	return &Table{names: names}
}

// Name returns the hero's display name, or a stable placeholder for ids
// the table does not know.
func (t *Table) Name(id int) string {
	if t != nil {
		if name, ok := t.names[id]; ok {
			return name
		}
	}
	return fmt.Sprintf("Hero %d", id)
}

// Size is the number of known heroes.
func (t *Table) Size() int {
	if t == nil {
		return 0
	}
	return len(t.names)
}

// Loader initializes the table on first use.
type Loader struct {
	source Source
	logger zerolog.Logger

	group singleflight.Group
	mu    sync.RWMutex
	table *Table
}

func NewLoader(source Source, logger zerolog.Logger) *Loader {
	return &Loader{source: source, logger: logger.With().Str("component", "heroes").Logger()}
}

// Get returns the shared table, fetching it on the first call. Concurrent
// callers share one in-flight fetch instead of racing.
func (l *Loader) Get(ctx context.Context) (*Table, error) {
	l.mu.RLock()
	cached := l.table
	l.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	v, err, _ := l.group.Do("heroes", func() (any, error) {
		payloads, err := l.source.Heroes(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetch heroes: %w", err)
		}
		table := NewTable(payloads)
		l.mu.Lock()
		l.table = table
		l.mu.Unlock()
		l.logger.Info().Int("heroes", table.Size()).Msg("hero table loaded")
		return table, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Table), nil
}

// Name resolves a hero name, falling back to the placeholder when the
// table cannot be fetched. Lookups must not take an account poll down.
func (l *Loader) Name(ctx context.Context, id int) string {
	table, err := l.Get(ctx)
	if err != nil {
		l.logger.Warn().Err(err).Int("hero_id", id).Msg("hero table unavailable, using placeholder")
		return (*Table)(nil).Name(id)
	}
	return table.Name(id)
}
