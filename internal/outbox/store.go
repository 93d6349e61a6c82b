// Package outbox decouples domain-event delivery from the scheduling
// transaction. Committed transitions append a row; a dispatcher drains
// pending rows and fans them out to observer plugins. Delivery is
// at-least-once: a row is only marked delivered after the fan-out returns.
package outbox

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/agendaplus/practice-backend/internal/plugin"
)

// Store is the append-only event log backing the dispatcher.
type Store interface {
	Append(ctx context.Context, ev plugin.Event) error

	// ListPending returns undelivered events in append order, oldest first.
	ListPending(ctx context.Context, limit int) ([]plugin.Event, error)

	MarkDelivered(ctx context.Context, eventID string) error
}

// MemoryStore is an in-process Store used by tests and by deployments that
// accept losing undelivered events on restart.
type MemoryStore struct {
	mu        sync.Mutex
	events    []plugin.Event
	delivered map[string]bool
	seq       int64
	order     map[string]int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		delivered: make(map[string]bool),
		order:     make(map[string]int64),
	}
}

func (s *MemoryStore) Append(ctx context.Context, ev plugin.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	s.seq++
	s.order[ev.ID] = s.seq
	s.events = append(s.events, ev)
	return nil
}

func (s *MemoryStore) ListPending(ctx context.Context, limit int) ([]plugin.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []plugin.Event
	for _, ev := range s.events {
		if s.delivered[ev.ID] {
			continue
		}
		out = append(out, ev)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return s.order[out[i].ID] < s.order[out[j].ID] })
	return out, nil
}

func (s *MemoryStore) MarkDelivered(ctx context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delivered[eventID] = true
	return nil
}

// Pending reports how many events are still undelivered.
func (s *MemoryStore) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, ev := range s.events {
		if !s.delivered[ev.ID] {
			n++
		}
	}
	return n
}
