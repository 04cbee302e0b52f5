// Package store defines the kernel's only expectation of the relational
// backing store: fetch an entity record by id, persist one back. The
// kernel never sees the store's schema or query language; failures cross
// the boundary as opaque errors that the database capability wraps as EIO.
package store

import (
	"context"
	"errors"

	"github.com/sheetforge/sheetforge/internal/types"
)

// ErrNotFound is returned when no record exists for the id
var ErrNotFound = errors.New("store: entity not found")

// BackingStore is the external-collaborator boundary. Both calls may
// suspend; callers await them fully before returning control to the
// kernel.
type BackingStore interface {
	FetchEntity(ctx context.Context, id string) (*types.Entity, error)
	Persist(ctx context.Context, id string, e *types.Entity) error
	Close() error
}

// Memory is an in-process BackingStore for tests and ephemeral runs
type Memory struct {
	records map[string]*types.Entity
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{records: make(map[string]*types.Entity)}
}

// FetchEntity returns a copy of the stored record
func (m *Memory) FetchEntity(_ context.Context, id string) (*types.Entity, error) {
	e, ok := m.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return e.Clone(), nil
}

// Persist stores a copy of the record
func (m *Memory) Persist(_ context.Context, id string, e *types.Entity) error {
	m.records[id] = e.Clone()
	return nil
}

// Close is a no-op
func (m *Memory) Close() error { return nil }
