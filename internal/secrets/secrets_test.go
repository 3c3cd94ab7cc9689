// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mardi4nfdi/importer/pkg/types"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(t *testing.T) string
		want   Set
		errMsg string
	}{
		{
			name: "reads key files and trims whitespace",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "mapping-dsn", "  postgres://importer:pw@db/mapping  \n")
				writeFile(t, dir, "wikidata-user-agent", "mardi-importer/0.1 (ops@example.org)\n")
				return dir
			},
			want: Set{
				"mapping-dsn":         "postgres://importer:pw@db/mapping",
				"wikidata-user-agent": "mardi-importer/0.1 (ops@example.org)",
			},
		},
		{
			name: "returns empty map for nonexistent directory",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "does-not-exist")
			},
			want: Set{},
		},
		{
			name: "skips empty files",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "mapping-dsn", "valid-dsn")
				writeFile(t, dir, "empty-key", "")
				writeFile(t, dir, "whitespace-only", "   \n\t  ")
				return dir
			},
			want: Set{
				"mapping-dsn": "valid-dsn",
			},
		},
		{
			name: "skips dotfiles",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, ".gitkeep", "")
				writeFile(t, dir, ".hidden-key", "secret")
				writeFile(t, dir, "wikidata-user-agent", "ua_real")
				return dir
			},
			want: Set{
				"wikidata-user-agent": "ua_real",
			},
		},
		{
			name: "skips subdirectories",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "mapping-dsn", "dsn_123")
				require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))
				return dir
			},
			want: Set{
				"mapping-dsn": "dsn_123",
			},
		},
		{
			name: "returns empty map for empty directory",
			setup: func(t *testing.T) string {
				return t.TempDir()
			},
			want: Set{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := tt.setup(t)
			got, err := Load(dir, nil)
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadUnreadableFileLogsWarning(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("file permissions are not enforced for root")
	}
	dir := t.TempDir()
	writeFile(t, dir, KeyUserAgent, "mardi-importer/0.1")

	badPath := filepath.Join(dir, KeyMappingDSN)
	require.NoError(t, os.WriteFile(badPath, []byte("postgres://x"), 0o000))
	t.Cleanup(func() { os.Chmod(badPath, 0o644) })

	core, logs := observer.New(zap.WarnLevel)
	got, err := Load(dir, zap.New(core))
	require.NoError(t, err)

	assert.Equal(t, Set{KeyUserAgent: "mardi-importer/0.1"}, got)
	entries := logs.FilterMessage("could not read secret").All()
	require.Len(t, entries, 1)
	assert.Equal(t, KeyMappingDSN, entries[0].ContextMap()["key"])
}

func TestSetApply(t *testing.T) {
	s := Set{
		KeyMappingDSN: "postgres://importer:pw@db/mapping",
		KeyUserAgent:  "from-secret",
		"unrelated":   "x",
	}
	cfg := types.Config{}
	cfg.Importer.UserAgent = "from-config"

	used := s.Apply(&cfg)

	assert.Equal(t, []string{KeyMappingDSN}, used)
	assert.Equal(t, "postgres://importer:pw@db/mapping", cfg.Mapping.DSN)
	assert.Equal(t, "from-config", cfg.Importer.UserAgent, "configured values win")
	assert.Equal(t, []string{"mapping-dsn", "unrelated", "wikidata-user-agent"}, s.Keys())
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}
