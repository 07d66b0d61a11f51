package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/Billy-Davies-2/championship-draft/internal/logger"
	"github.com/Billy-Davies-2/championship-draft/internal/models"
)

// MemoryRecorder stands in for the ClickHouse client during local
// development. Events live only as long as the process.
type MemoryRecorder struct {
	mu     sync.RWMutex
	events []models.DraftEvent
}

// NewMemoryRecorder creates an empty in-memory recorder
func NewMemoryRecorder() *MemoryRecorder {
	logger.Info("Using MOCK ClickHouse (in-memory draft events) for local development")
	return &MemoryRecorder{}
}

// RecordDraftEvents appends events
func (m *MemoryRecorder) RecordDraftEvents(ctx context.Context, events []models.DraftEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	m.events = append(m.events, events...)
	m.mu.Unlock()
	return nil
}

// Events returns a copy of everything recorded so far
func (m *MemoryRecorder) Events() []models.DraftEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.DraftEvent(nil), m.events...)
}

// BanCounts aggregates ban events per loadout, most banned first
func (m *MemoryRecorder) BanCounts(ctx context.Context) ([]models.BanCount, error) {
	m.mu.RLock()
	tally := make(map[string]uint64)
	for _, e := range m.events {
		if e.Kind == models.EventBan {
			tally[e.Value]++
		}
	}
	m.mu.RUnlock()

	counts := make([]models.BanCount, 0, len(tally))
	for id, n := range tally {
		counts = append(counts, models.BanCount{LoadoutID: id, Count: n})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].LoadoutID < counts[j].LoadoutID
	})
	return counts, nil
}

// Ping always succeeds
func (m *MemoryRecorder) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op for the in-memory recorder
func (m *MemoryRecorder) Close() error {
	return nil
}
