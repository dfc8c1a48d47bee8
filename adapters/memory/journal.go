// Package memory provides in-memory implementations for testing and
// short-lived processes.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/artpar/rewardctl/ports"
)

// ErrNotFound is returned when an entry does not exist.
var ErrNotFound = errors.New("not found")

// JournalStore is an in-memory implementation of ports.TxJournal.
// Entries are lost when the process exits.
type JournalStore struct {
	mu      sync.RWMutex
	entries map[string]ports.JournalEntry // by ID
}

// NewJournalStore creates a new in-memory journal.
func NewJournalStore() *JournalStore {
	return &JournalStore{
		entries: make(map[string]ports.JournalEntry),
	}
}

// Record stores a journal entry.
func (s *JournalStore) Record(ctx context.Context, e ports.JournalEntry) error {
	if e.ID == "" {
		return errors.New("journal entry id is required")
	}
	if e.Payload == "" {
		e.Payload = "{}"
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[e.ID]; ok {
		return errors.New("journal entry " + e.ID + " already exists")
	}
	s.entries[e.ID] = e
	return nil
}

// Get retrieves an entry by ID.
func (s *JournalStore) Get(ctx context.Context, id string) (ports.JournalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return ports.JournalEntry{}, ErrNotFound
	}
	return e, nil
}

// List returns entries matching f, newest first.
func (s *JournalStore) List(ctx context.Context, f ports.JournalFilter) ([]ports.JournalEntry, error) {
	matched := s.match(f)

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	if f.Offset >= len(matched) {
		return []ports.JournalEntry{}, nil
	}
	end := min(f.Offset+limit, len(matched))
	return matched[f.Offset:end], nil
}

// Count returns the number of entries matching f, ignoring paging.
func (s *JournalStore) Count(ctx context.Context, f ports.JournalFilter) (int, error) {
	return len(s.match(f)), nil
}

func (s *JournalStore) match(f ports.JournalFilter) []ports.JournalEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []ports.JournalEntry{}
	for _, e := range s.entries {
		if f.TypeURL != "" && e.TypeURL != f.TypeURL {
			continue
		}
		if f.Status != "" && e.Status != f.Status {
			continue
		}
		result = append(result, e)
	}

	// Same order as the SQLite store: created_at DESC, id DESC.
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result
}
