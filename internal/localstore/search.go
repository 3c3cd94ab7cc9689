// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package localstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mardi4nfdi/importer/pkg/types"
)

// QueryOptions holds parameters for term searches.
type QueryOptions struct {
	// Query is the FTS5 full-text search string over labels, descriptions
	// and aliases.
	Query string

	// Namespace restricts results to items or properties.
	Namespace types.Namespace

	// Language restricts matching terms to one language.
	Language string

	// MaxResults limits result count. Zero uses the store default.
	MaxResults int
}

// SearchResult is a record matching a term query.
type SearchResult struct {
	ID          types.EntityID `json:"id" yaml:"id"`
	Label       string         `json:"label" yaml:"label"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	MatchedTerm string         `json:"matched_term" yaml:"matched_term"`
}

// Search finds records whose terms match opts.Query, ranked by relevance.
// Each record appears once, with its best-ranked matching term.
func (s *Store) Search(ctx context.Context, opts QueryOptions) ([]SearchResult, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	var (
		qb   strings.Builder
		args []any
	)
	qb.WriteString(
		`SELECT t.entity_id, t.value, e.body, terms_fts.rank
		FROM terms_fts
		JOIN terms t ON t.rowid = terms_fts.rowid
		JOIN entities e ON e.id = t.entity_id
		WHERE terms_fts MATCH ?`)
	args = append(args, opts.Query)

	if opts.Namespace != 0 {
		qb.WriteString(` AND e.namespace = ?`)
		args = append(args, string(rune(opts.Namespace)))
	}
	if opts.Language != "" {
		qb.WriteString(` AND t.language = ?`)
		args = append(args, opts.Language)
	}
	qb.WriteString(` ORDER BY terms_fts.rank`)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("searching terms: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]bool)
	var results []SearchResult
	for rows.Next() {
		var (
			rawID, matched, body string
			rank                 float64
		)
		if err := rows.Scan(&rawID, &matched, &body, &rank); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		if seen[rawID] {
			continue
		}
		seen[rawID] = true

		var e types.Entity
		if err := json.Unmarshal([]byte(body), &e); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", rawID, err)
		}
		results = append(results, SearchResult{
			ID:          e.ID,
			Label:       pickTerm(e.Labels, opts.Language),
			Description: pickTerm(e.Descriptions, opts.Language),
			MatchedTerm: matched,
		})
		if len(results) >= maxResults {
			break
		}
	}
	return results, rows.Err()
}

// pickTerm returns the term in lang, falling back to English and then to
// the first language in sorted order.
func pickTerm(terms map[string]string, lang string) string {
	if v, ok := terms[lang]; ok {
		return v
	}
	if v, ok := terms["en"]; ok {
		return v
	}
	for _, k := range sortedKeys(terms) {
		return terms[k]
	}
	return ""
}
