// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package localstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/mardi4nfdi/importer/pkg/types"
)

// Entities returns every stored record, items first, each namespace in id
// order. A zero ns returns both namespaces.
func (s *Store) Entities(ctx context.Context, ns types.Namespace) ([]*types.Entity, error) {
	query := `SELECT body FROM entities ORDER BY namespace DESC, num`
	var args []any
	if ns != 0 {
		query = `SELECT body FROM entities WHERE namespace = ? ORDER BY num`
		args = append(args, string(rune(ns)))
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	defer rows.Close()

	var out []*types.Entity
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		var e types.Entity
		if err := json.Unmarshal([]byte(body), &e); err != nil {
			return nil, fmt.Errorf("decoding record: %w", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// ExportYAML writes every record to dir/index/export.yaml and returns the
// file path.
func (s *Store) ExportYAML(ctx context.Context, ns types.Namespace) (string, error) {
	entities, err := s.Entities(ctx, ns)
	if err != nil {
		return "", fmt.Errorf("querying for export: %w", err)
	}

	path := filepath.Join(s.dir, indexDir, "export.yaml")
	data, err := yaml.Marshal(entities)
	if err != nil {
		return "", fmt.Errorf("marshaling YAML: %w", err)
	}
	return path, os.WriteFile(path, data, 0o644)
}

// ExportJSON writes every record to dir/index/export.json and returns the
// file path.
func (s *Store) ExportJSON(ctx context.Context, ns types.Namespace) (string, error) {
	entities, err := s.Entities(ctx, ns)
	if err != nil {
		return "", fmt.Errorf("querying for export: %w", err)
	}

	path := filepath.Join(s.dir, indexDir, "export.json")
	data, err := json.MarshalIndent(entities, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling JSON: %w", err)
	}
	return path, os.WriteFile(path, data, 0o644)
}
