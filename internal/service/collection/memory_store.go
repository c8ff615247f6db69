package collection

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"
)

type memoryEntry struct {
	cards       map[string]struct{}
	lastUpdated time.Time
}

// MemoryStore keeps entries in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]map[string]*memoryEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]map[string]*memoryEntry)}
}

func (s *MemoryStore) Add(_ context.Context, key, _ string, modelID, cardID string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	models, ok := s.entries[key]
	if !ok {
		models = make(map[string]*memoryEntry)
		s.entries[key] = models
	}
	entry, ok := models[modelID]
	if !ok {
		entry = &memoryEntry{cards: make(map[string]struct{})}
		models[modelID] = entry
	}
	if _, held := entry.cards[cardID]; held {
		return false, nil
	}
	entry.cards[cardID] = struct{}{}
	entry.lastUpdated = at
	return true, nil
}

func (s *MemoryStore) Cards(_ context.Context, key, modelID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key][modelID]
	if !ok {
		return nil, nil
	}
	return slices.Sorted(maps.Keys(entry.cards)), nil
}

func (s *MemoryStore) Entries(_ context.Context, key string) (map[string]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]Entry, len(s.entries[key]))
	for modelID, entry := range s.entries[key] {
		out[modelID] = Entry{
			SavedCards:  slices.Sorted(maps.Keys(entry.cards)),
			LastUpdated: entry.lastUpdated,
		}
	}
	return out, nil
}
