package collection

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"
)

const collectionsFile = "userCollections.json"

// userCollection is one document of userCollections.json, keyed by the
// sanitized identity.
type userCollection struct {
	Email     string           `json:"email"`
	CreatedAt time.Time        `json:"createdAt"`
	Models    map[string]Entry `json:"models"`
}

// FileStore persists all collections to a single JSON document under
// dataDir. Writes are serialised by a mutex and replace the file atomically.
type FileStore struct {
	mu      sync.Mutex
	dataDir string
}

func NewFileStore(dataDir string) *FileStore {
	return &FileStore{dataDir: dataDir}
}

func (s *FileStore) path() string {
	return filepath.Join(s.dataDir, collectionsFile)
}

func (s *FileStore) Add(_ context.Context, key, identity, modelID, cardID string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := s.load()
	if err != nil {
		return false, err
	}

	doc, ok := docs[key]
	if !ok {
		doc = &userCollection{Email: identity, CreatedAt: at, Models: make(map[string]Entry)}
		docs[key] = doc
	}
	entry := doc.Models[modelID]
	if slices.Contains(entry.SavedCards, cardID) {
		return false, nil
	}
	entry.SavedCards = append(entry.SavedCards, cardID)
	entry.LastUpdated = at
	doc.Models[modelID] = entry

	if err := s.save(docs); err != nil {
		return false, err
	}
	return true, nil
}

func (s *FileStore) Cards(_ context.Context, key, modelID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := s.load()
	if err != nil {
		return nil, err
	}
	doc, ok := docs[key]
	if !ok {
		return nil, nil
	}
	return slices.Clone(doc.Models[modelID].SavedCards), nil
}

func (s *FileStore) Entries(_ context.Context, key string) (map[string]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make(map[string]Entry)
	if doc, ok := docs[key]; ok {
		for modelID, entry := range doc.Models {
			out[modelID] = entry
		}
	}
	return out, nil
}

func (s *FileStore) load() (map[string]*userCollection, error) {
	data, err := os.ReadFile(s.path())
	if os.IsNotExist(err) {
		return make(map[string]*userCollection), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read collections file: %w", err)
	}

	docs := make(map[string]*userCollection)
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal collections: %w", err)
	}
	for key, doc := range docs {
		if doc == nil {
			delete(docs, key)
			continue
		}
		if doc.Models == nil {
			doc.Models = make(map[string]Entry)
		}
	}
	return docs, nil
}

func (s *FileStore) save(docs map[string]*userCollection) error {
	if err := os.MkdirAll(s.dataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal collections: %w", err)
	}

	tmp := s.path() + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write collections file: %w", err)
	}
	if err := os.Rename(tmp, s.path()); err != nil {
		return fmt.Errorf("failed to replace collections file: %w", err)
	}
	return nil
}
