// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads credentials from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key name and the
// file contents (trimmed) are the value.
//
// Supported key files: mapping-dsn (data source name of a mysql or postgres
// mapping store, usually carrying a password) and wikidata-user-agent
// (contact string sent to the remote API).
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/mardi4nfdi/importer/pkg/types"
)

// Known key files.
const (
	KeyMappingDSN = "mapping-dsn"
	KeyUserAgent  = "wikidata-user-agent"
)

// Set maps key names to secret values.
type Set map[string]string

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files are logged as warnings but do not abort.
func Load(dir string, logger *zap.Logger) (Set, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Set{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(Set)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			logger.Warn("could not read secret", zap.String("key", name), zap.Error(err))
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// Keys returns the loaded key names, sorted. Values are never exposed.
func (s Set) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Apply fills configuration fields that are still empty from known keys
// and returns the keys it used. Values set in the config file or the
// environment win.
func (s Set) Apply(cfg *types.Config) []string {
	var used []string
	fill := func(dst *string, key string) {
		if v, ok := s[key]; ok && *dst == "" {
			*dst = v
			used = append(used, key)
		}
	}
	fill(&cfg.Mapping.DSN, KeyMappingDSN)
	fill(&cfg.Importer.UserAgent, KeyUserAgent)
	return used
}
