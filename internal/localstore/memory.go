// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package localstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mardi4nfdi/importer/pkg/types"
)

// MemoryStore keeps records in process with the same lookup rules as
// Store. It records every write for tests.
type MemoryStore struct {
	mu      sync.Mutex
	records map[types.EntityID]*types.Entity
	next    map[types.Namespace]int64
	writes  []WriteEvent
	reads   int
}

// WriteEvent is one Write call seen by a MemoryStore.
type WriteEvent struct {
	ID    types.EntityID
	AsNew bool
	Label string
}

// NewMemoryStore returns an empty store. Local ids start at 1 in each
// namespace.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[types.EntityID]*types.Entity),
		next:    map[types.Namespace]int64{types.NamespaceItem: 1, types.NamespaceProperty: 1},
	}
}

func (m *MemoryStore) Get(_ context.Context, id types.EntityID) (*types.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	e, ok := m.records[id]
	if !ok {
		return nil, fmt.Errorf("local %s: %w", id, types.ErrNotFound)
	}
	return e.Clone(), nil
}

func (m *MemoryStore) Write(_ context.Context, e *types.Entity, asNew bool) (types.EntityID, error) {
	ns := e.Namespace()
	if ns != types.NamespaceItem && ns != types.NamespaceProperty {
		return types.EntityID{}, fmt.Errorf("writing entity: unknown namespace %q", string(rune(ns)))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec := e.Clone()
	if asNew {
		rec.ID = types.EntityID{Namespace: ns, Numeric: m.next[ns]}
		m.next[ns]++
	} else {
		if rec.ID.IsZero() {
			return types.EntityID{}, errors.New("writing entity: existing record without id")
		}
		if _, ok := m.records[rec.ID]; !ok {
			return types.EntityID{}, fmt.Errorf("local %s: %w", rec.ID, types.ErrNotFound)
		}
	}
	m.records[rec.ID] = rec
	m.writes = append(m.writes, WriteEvent{ID: rec.ID, AsNew: asNew, Label: rec.Labels["en"]})
	return rec.ID, nil
}

// FindExisting applies the same matching rules as Store.FindExisting.
func (m *MemoryStore) FindExisting(_ context.Context, e *types.Entity) (types.EntityID, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, lang := range sortedKeys(e.Labels) {
		label := e.Labels[lang]
		if label == "" {
			continue
		}
		for _, id := range m.sortedIDs(e.Namespace()) {
			cand := m.records[id]
			if cand.Labels[lang] != label {
				continue
			}
			if e.Namespace() == types.NamespaceProperty || cand.Descriptions[lang] == e.Descriptions[lang] {
				return id, true, nil
			}
		}
	}
	return types.EntityID{}, false, nil
}

// FindByValue applies the same matching rules as Store.FindByValue.
func (m *MemoryStore) FindByValue(_ context.Context, property types.EntityID, value string) (types.EntityID, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ns := range []types.Namespace{types.NamespaceProperty, types.NamespaceItem} {
		for _, id := range m.sortedIDs(ns) {
			for _, st := range m.records[id].Statements {
				if st.Property() != property {
					continue
				}
				if key, ok := valueKey(st.MainSnak.Value); ok && key == value {
					return id, true, nil
				}
			}
		}
	}
	return types.EntityID{}, false, nil
}

func (m *MemoryStore) sortedIDs(ns types.Namespace) []types.EntityID {
	var ids []types.EntityID
	for n := int64(1); n < m.next[ns]; n++ {
		id := types.EntityID{Namespace: ns, Numeric: n}
		if _, ok := m.records[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// Writes returns every write in call order.
func (m *MemoryStore) Writes() []WriteEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]WriteEvent(nil), m.writes...)
}

// Reads returns the number of Get calls.
func (m *MemoryStore) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

// Len returns the number of stored records.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}
