// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mardi4nfdi/importer/pkg/types"
)

func TestParseNamespaces(t *testing.T) {
	tests := []struct {
		in      string
		want    []types.Namespace
		wantErr bool
	}{
		{"", []types.Namespace{types.NamespaceItem, types.NamespaceProperty}, false},
		{"item", []types.Namespace{types.NamespaceItem}, false},
		{"P", []types.Namespace{types.NamespaceProperty}, false},
		{"lexeme", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseNamespaces(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadMentions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mentions.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
- name: J. Smith
- name: John Smith
  strong_id: 0000-0002-1825-0097
  affiliation: Q5
`), 0o644))

	got, err := readMentions(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "J. Smith", got[0].Name)
	assert.Equal(t, "0000-0002-1825-0097", got[1].StrongID)
	assert.Equal(t, types.MustParseEntityID("Q5"), got[1].Affiliation)
}

func TestDefaultsUnmarshal(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	var c types.Config
	require.NoError(t, v.Unmarshal(&c))
	assert.Equal(t, "sqlite3", c.Mapping.Driver)
	assert.Equal(t, []string{"en", "de"}, c.Importer.Languages)
	assert.Equal(t, 5, c.Importer.MaxRetries)
	assert.Equal(t, types.DefaultExcludedKinds, c.Importer.ExcludedKinds)
	assert.Equal(t, "graph", c.LocalStore.Dir)
	assert.False(t, c.Telemetry.Enabled)
}
