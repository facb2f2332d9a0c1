// Package memstore is a Gateway held in process memory.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/cedd82/mongoSchemaVersion/internal/doc"
	"github.com/cedd82/mongoSchemaVersion/internal/store"
)

// Store keeps encoded BSON bodies keyed by id. It is safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

var _ store.Gateway = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{docs: make(map[string][]byte)}
}

func (s *Store) Fetch(ctx context.Context, id string) (doc.Raw, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	body, ok := s.docs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, store.NotFound(id)
	}

	raw, err := doc.Unmarshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode document %s: %w", id, err)
	}
	return raw, nil
}

func (s *Store) Upsert(ctx context.Context, raw doc.Raw) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	id, err := raw.ID()
	if err != nil {
		return err
	}
	if _, err := raw.Version(); err != nil {
		return fmt.Errorf("document %s: %w", id, err)
	}
	body, err := raw.Marshal()
	if err != nil {
		return fmt.Errorf("failed to encode document %s: %w", id, err)
	}

	s.mu.Lock()
	s.docs[id] = body
	s.mu.Unlock()
	return nil
}

func (s *Store) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.docs = make(map[string][]byte)
	s.mu.Unlock()
	return nil
}

func (s *Store) Stats(ctx context.Context) (store.Stats, error) {
	if err := ctx.Err(); err != nil {
		return store.Stats{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := store.Stats{Documents: len(s.docs), ByVersion: make(map[int]int)}
	for id, body := range s.docs {
		raw, err := doc.Unmarshal(body)
		if err != nil {
			return store.Stats{}, fmt.Errorf("failed to decode document %s: %w", id, err)
		}
		v, err := raw.Version()
		if err != nil {
			return store.Stats{}, fmt.Errorf("document %s: %w", id, err)
		}
		stats.ByVersion[v]++
	}
	return stats, nil
}

// Close is a no-op; the contents stay readable.
func (s *Store) Close() error { return nil }
