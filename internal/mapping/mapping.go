// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package mapping persists the foreign-to-local id mapping of imported
// entities. Items and properties live in separate tables keyed by the
// numeric part of their ids.
package mapping

import (
	"context"

	"github.com/mardi4nfdi/importer/pkg/types"
)

// Entry is one mapping row.
type Entry = types.MappingEntry

// Repository stores at most one local id per foreign id. FullyImported
// only ever moves from false to true.
type Repository interface {
	// Lookup returns the row for foreignID, if any.
	Lookup(ctx context.Context, foreignID types.EntityID) (Entry, bool, error)

	// LookupByLocal returns the row whose local id is localID, if any.
	LookupByLocal(ctx context.Context, localID types.EntityID) (Entry, bool, error)

	// Insert adds a row unless one already exists for foreignID. It
	// returns the row that is stored afterwards, which is the existing row
	// when another writer got there first.
	Insert(ctx context.Context, foreignID, localID types.EntityID, fullyImported bool) (Entry, error)

	// MarkFullyImported sets fully_imported for foreignID. Missing rows
	// are ignored.
	MarkFullyImported(ctx context.Context, foreignID types.EntityID) error
}

// tableFor returns the table holding ids of namespace ns.
func tableFor(ns types.Namespace) string {
	if ns == types.NamespaceProperty {
		return "properties"
	}
	return "items"
}
