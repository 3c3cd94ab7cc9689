// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
)

// ValidationError reports a malformed entity identifier. It is fatal for the
// call that received it and is raised before any state changes.
type ValidationError struct {
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid entity id %q: %s", e.Value, e.Reason)
}

var (
	// ErrNotFound is returned by a remote source when an entity does not
	// exist. The importer also uses it for entities without a usable label.
	ErrNotFound = errors.New("entity not found")

	// ErrUnsupportedValueKind marks a snak dropped because its value kind
	// cannot be mirrored.
	ErrUnsupportedValueKind = errors.New("unsupported value kind")

	// ErrExcludedProperty marks a statement dropped because its property is
	// configured as excluded.
	ErrExcludedProperty = errors.New("excluded property")
)
