// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package localstore persists the local knowledge graph in SQLite. Records
// are stored whole as JSON next to a term table (labels, descriptions,
// aliases) with a full-text index and a value table for main-snak lookups.
package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/mardi4nfdi/importer/pkg/types"
)

const (
	indexDir = "index"
	dbFile   = "local.db"
)

// Store manages the local graph SQLite database.
type Store struct {
	db         *sql.DB
	dir        string
	maxResults int
	logger     *zap.Logger
	now        func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// NewStore opens or creates the database at dir/index/local.db and creates
// the schema if it does not exist.
func NewStore(cfg types.LocalStoreConfig, opts ...Option) (*Store, error) {
	dbDir := filepath.Join(cfg.Dir, indexDir)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(dbDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// Local id allocation reads MAX(num) inside the write transaction;
	// one connection keeps allocations serial.
	db.SetMaxOpenConns(1)

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	s := &Store{
		db:         db,
		dir:        cfg.Dir,
		maxResults: maxResults,
		logger:     zap.NewNop(),
		now:        time.Now,
	}
	for _, o := range opts {
		o(s)
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS entities (
			id TEXT PRIMARY KEY,
			namespace TEXT NOT NULL,
			num INTEGER NOT NULL,
			datatype TEXT,
			body TEXT NOT NULL,
			modified TEXT NOT NULL,
			UNIQUE(namespace, num)
		)`,
		`CREATE TABLE IF NOT EXISTS terms (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			entity_id TEXT NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
			kind TEXT NOT NULL,
			language TEXT NOT NULL,
			value TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_terms_entity ON terms(entity_id)`,
		`CREATE INDEX IF NOT EXISTS idx_terms_lookup ON terms(kind, language, value)`,
		`CREATE TABLE IF NOT EXISTS statement_values (
			entity_id TEXT NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
			property TEXT NOT NULL,
			value TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_values_entity ON statement_values(entity_id)`,
		`CREATE INDEX IF NOT EXISTS idx_values_lookup ON statement_values(property, value)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table with triggers for sync.
	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='terms_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE terms_fts USING fts5(value, content=terms, content_rowid=rowid)`,
			`CREATE TRIGGER terms_ai AFTER INSERT ON terms BEGIN
				INSERT INTO terms_fts(rowid, value) VALUES (new.rowid, new.value);
			END`,
			`CREATE TRIGGER terms_ad AFTER DELETE ON terms BEGIN
				INSERT INTO terms_fts(terms_fts, rowid, value) VALUES('delete', old.rowid, old.value);
			END`,
			`CREATE TRIGGER terms_au AFTER UPDATE ON terms BEGIN
				INSERT INTO terms_fts(terms_fts, rowid, value) VALUES('delete', old.rowid, old.value);
				INSERT INTO terms_fts(rowid, value) VALUES (new.rowid, new.value);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}
	return nil
}

// Get returns the record stored under id or types.ErrNotFound.
func (s *Store) Get(ctx context.Context, id types.EntityID) (*types.Entity, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM entities WHERE id = ?`, id.String()).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("local %s: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading local %s: %w", id, err)
	}
	var e types.Entity
	if err := json.Unmarshal([]byte(body), &e); err != nil {
		return nil, fmt.Errorf("decoding local %s: %w", id, err)
	}
	return &e, nil
}

// Write stores e. With asNew a fresh id is allocated in e's namespace;
// otherwise e.ID must name an existing record, which is replaced. The
// caller's record is not modified.
func (s *Store) Write(ctx context.Context, e *types.Entity, asNew bool) (types.EntityID, error) {
	ns := e.Namespace()
	if ns != types.NamespaceItem && ns != types.NamespaceProperty {
		return types.EntityID{}, fmt.Errorf("writing entity: unknown namespace %q", string(rune(ns)))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return types.EntityID{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	rec := e.Clone()
	rec.Modified = s.now().UTC()

	if asNew {
		var next int64
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(num), 0) + 1 FROM entities WHERE namespace = ?`, string(rune(ns)),
		).Scan(&next); err != nil {
			return types.EntityID{}, fmt.Errorf("allocating %s id: %w", ns, err)
		}
		rec.ID = types.EntityID{Namespace: ns, Numeric: next}
	} else {
		if rec.ID.IsZero() {
			return types.EntityID{}, errors.New("writing entity: existing record without id")
		}
		var n int
		if err := tx.QueryRowContext(ctx, `SELECT count(*) FROM entities WHERE id = ?`, rec.ID.String()).Scan(&n); err != nil {
			return types.EntityID{}, fmt.Errorf("checking local %s: %w", rec.ID, err)
		}
		if n == 0 {
			return types.EntityID{}, fmt.Errorf("local %s: %w", rec.ID, types.ErrNotFound)
		}
		for _, q := range []string{
			`DELETE FROM terms WHERE entity_id = ?`,
			`DELETE FROM statement_values WHERE entity_id = ?`,
		} {
			if _, err := tx.ExecContext(ctx, q, rec.ID.String()); err != nil {
				return types.EntityID{}, fmt.Errorf("clearing local %s: %w", rec.ID, err)
			}
		}
	}

	body, err := json.Marshal(rec)
	if err != nil {
		return types.EntityID{}, fmt.Errorf("encoding %s: %w", rec.ID, err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO entities (id, namespace, num, datatype, body, modified)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			datatype=excluded.datatype, body=excluded.body, modified=excluded.modified`,
		rec.ID.String(), string(rune(ns)), rec.ID.Numeric, string(rec.Datatype),
		string(body), rec.Modified.Format(time.RFC3339Nano),
	)
	if err != nil {
		return types.EntityID{}, fmt.Errorf("upserting %s: %w", rec.ID, err)
	}

	if err := insertTerms(ctx, tx, rec); err != nil {
		return types.EntityID{}, err
	}
	if err := insertValues(ctx, tx, rec); err != nil {
		return types.EntityID{}, err
	}
	if err := tx.Commit(); err != nil {
		return types.EntityID{}, fmt.Errorf("committing %s: %w", rec.ID, err)
	}

	s.logger.Debug("local record written", zap.Stringer("id", rec.ID), zap.Bool("new", asNew))
	return rec.ID, nil
}

func insertTerms(ctx context.Context, tx *sql.Tx, e *types.Entity) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO terms (entity_id, kind, language, value) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing term insert: %w", err)
	}
	defer stmt.Close()

	id := e.ID.String()
	add := func(kind, lang, value string) error {
		if _, err := stmt.ExecContext(ctx, id, kind, lang, value); err != nil {
			return fmt.Errorf("inserting %s term for %s: %w", kind, id, err)
		}
		return nil
	}
	for lang, v := range e.Labels {
		if err := add(termLabel, lang, v); err != nil {
			return err
		}
	}
	for lang, v := range e.Descriptions {
		if err := add(termDescription, lang, v); err != nil {
			return err
		}
	}
	for lang, values := range e.Aliases {
		for _, v := range values {
			if err := add(termAlias, lang, v); err != nil {
				return err
			}
		}
	}
	return nil
}

func insertValues(ctx context.Context, tx *sql.Tx, e *types.Entity) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO statement_values (entity_id, property, value) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing value insert: %w", err)
	}
	defer stmt.Close()

	for _, st := range e.Statements {
		key, ok := valueKey(st.MainSnak.Value)
		if !ok {
			continue
		}
		if _, err := stmt.ExecContext(ctx, e.ID.String(), st.Property().String(), key); err != nil {
			return fmt.Errorf("inserting value for %s: %w", e.ID, err)
		}
	}
	return nil
}

// FindExisting looks for a stored record in e's namespace that already
// represents e. Properties match on any label; items match on a label
// together with the description in the same language, both of which must
// be equal (an absent description only matches an absent description).
func (s *Store) FindExisting(ctx context.Context, e *types.Entity) (types.EntityID, bool, error) {
	ns := string(rune(e.Namespace()))
	for _, lang := range sortedKeys(e.Labels) {
		label := e.Labels[lang]
		if label == "" {
			continue
		}
		rows, err := s.db.QueryContext(ctx,
			`SELECT e.id FROM terms t JOIN entities e ON e.id = t.entity_id
			 WHERE t.kind = ? AND t.language = ? AND t.value = ? AND e.namespace = ?
			 ORDER BY e.num`,
			termLabel, lang, label, ns)
		if err != nil {
			return types.EntityID{}, false, fmt.Errorf("searching label %q: %w", label, err)
		}
		candidates, err := scanIDs(rows)
		if err != nil {
			return types.EntityID{}, false, err
		}

		for _, id := range candidates {
			if e.Namespace() == types.NamespaceProperty {
				return id, true, nil
			}
			var desc string
			err := s.db.QueryRowContext(ctx,
				`SELECT value FROM terms WHERE entity_id = ? AND kind = ? AND language = ?`,
				id.String(), termDescription, lang).Scan(&desc)
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return types.EntityID{}, false, fmt.Errorf("reading description of %s: %w", id, err)
			}
			if desc == e.Descriptions[lang] {
				return id, true, nil
			}
		}
	}
	return types.EntityID{}, false, nil
}

// FindByValue returns the first record with a main snak of property whose
// value renders as value (string values verbatim, entity values by id).
func (s *Store) FindByValue(ctx context.Context, property types.EntityID, value string) (types.EntityID, bool, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT v.entity_id FROM statement_values v JOIN entities e ON e.id = v.entity_id
		 WHERE v.property = ? AND v.value = ? ORDER BY e.namespace, e.num LIMIT 1`,
		property.String(), value)
	if err != nil {
		return types.EntityID{}, false, fmt.Errorf("searching %s=%q: %w", property, value, err)
	}
	ids, err := scanIDs(rows)
	if err != nil {
		return types.EntityID{}, false, err
	}
	if len(ids) == 0 {
		return types.EntityID{}, false, nil
	}
	return ids[0], true, nil
}

func scanIDs(rows *sql.Rows) ([]types.EntityID, error) {
	defer rows.Close()
	var out []types.EntityID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scanning id: %w", err)
		}
		id, err := types.ParseEntityID(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Count returns the number of stored records in namespace ns.
func (s *Store) Count(ctx context.Context, ns types.Namespace) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM entities WHERE namespace = ?`, string(rune(ns))).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting %s records: %w", ns, err)
	}
	return n, nil
}
