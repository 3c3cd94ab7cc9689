// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package localstore

import (
	"sort"

	"github.com/mardi4nfdi/importer/pkg/types"
)

const (
	termLabel       = "label"
	termDescription = "description"
	termAlias       = "alias"
)

// valueKey renders a main-snak value for equality lookups. Only string
// and entity values are indexed.
func valueKey(v types.Value) (string, bool) {
	switch x := v.(type) {
	case types.StringValue:
		return x.Value, true
	case types.EntityValue:
		return x.ID.String(), true
	case types.MonolingualText:
		return x.Text, true
	default:
		return "", false
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
