// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package mapping

import (
	"context"
	"sync"

	"github.com/mardi4nfdi/importer/pkg/types"
)

// MemoryRepository is an in-process Repository. It is safe for concurrent
// use and records calls so tests can assert on cache traffic.
type MemoryRepository struct {
	mu      sync.Mutex
	rows    map[types.EntityID]Entry
	order   []types.EntityID
	lookups int
	inserts int
}

// NewMemoryRepository returns an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{rows: make(map[types.EntityID]Entry)}
}

func (m *MemoryRepository) Lookup(_ context.Context, foreignID types.EntityID) (Entry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	e, ok := m.rows[foreignID]
	return e, ok, nil
}

func (m *MemoryRepository) LookupByLocal(_ context.Context, localID types.EntityID) (Entry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	for _, id := range m.order {
		if e := m.rows[id]; e.LocalID == localID {
			return e, true, nil
		}
	}
	return Entry{}, false, nil
}

func (m *MemoryRepository) Insert(_ context.Context, foreignID, localID types.EntityID, fullyImported bool) (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.rows[foreignID]; ok {
		return e, nil
	}
	m.inserts++
	e := Entry{ForeignID: foreignID, LocalID: localID, FullyImported: fullyImported}
	m.rows[foreignID] = e
	m.order = append(m.order, foreignID)
	return e, nil
}

func (m *MemoryRepository) MarkFullyImported(_ context.Context, foreignID types.EntityID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.rows[foreignID]; ok {
		e.FullyImported = true
		m.rows[foreignID] = e
	}
	return nil
}

// Entries returns all rows in insertion order.
func (m *MemoryRepository) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.rows[id])
	}
	return out
}

// Inserts returns the number of rows created.
func (m *MemoryRepository) Inserts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inserts
}

// Lookups returns the number of Lookup and LookupByLocal calls.
func (m *MemoryRepository) Lookups() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lookups
}
