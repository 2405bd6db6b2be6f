package asset

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned when an asset id has no record.
var ErrNotFound = errors.New("asset not found")

// Store is the metadata-store contract the pipeline consumes. UpdateDerived
// writes complete replacement values for the pipeline-owned fields only; it
// never requires a read-modify-write of the full record.
type Store interface {
	Create(ctx context.Context, a *Asset) error
	Get(ctx context.Context, id string) (*Asset, error)
	SetStatus(ctx context.Context, id string, status Status) error
	UpdateDerived(ctx context.Context, id string, d Derived) error
}

// MemoryStore is an in-memory Store for tests and local development.
type MemoryStore struct {
	mu     sync.Mutex
	assets map[string]*Asset
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{assets: make(map[string]*Asset)}
}

func (s *MemoryStore) Create(_ context.Context, a *Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.assets[a.ID] = &cp
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assets[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *MemoryStore) SetStatus(_ context.Context, id string, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assets[id]
	if !ok {
		return ErrNotFound
	}
	a.Status = status
	return nil
}

func (s *MemoryStore) UpdateDerived(_ context.Context, id string, d Derived) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assets[id]
	if !ok {
		return ErrNotFound
	}
	a.ThumbnailPath = d.ThumbnailPath
	a.Transcoded = d.Transcoded
	a.Metadata = d.Metadata
	a.Status = d.Status
	return nil
}
