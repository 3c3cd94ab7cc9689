// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package mapping

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/mardi4nfdi/importer/pkg/types"
)

// Supported database/sql driver names.
const (
	DriverSQLite   = "sqlite3"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

const retryMaxElapsed = 30 * time.Second

// SQLStore is a Repository backed by database/sql.
type SQLStore struct {
	db     *sql.DB
	driver string
	logger *zap.Logger
}

// Option configures an SQLStore.
type Option func(*SQLStore)

// WithLogger sets the logger used for retries.
func WithLogger(l *zap.Logger) Option {
	return func(s *SQLStore) { s.logger = l }
}

// Open connects to the mapping database described by cfg and creates the
// schema if needed. An empty driver selects sqlite3; an empty sqlite3 DSN
// is an error.
func Open(ctx context.Context, cfg types.MappingConfig, opts ...Option) (*SQLStore, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverSQLite
	}
	dsn := cfg.DSN
	switch driver {
	case DriverSQLite:
		if dsn == "" {
			return nil, errors.New("mapping: sqlite3 requires a database path")
		}
		if !strings.HasPrefix(dsn, "file:") && dsn != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
				return nil, fmt.Errorf("creating mapping directory: %w", err)
			}
			dsn += "?_journal_mode=WAL&_busy_timeout=5000"
		}
	case DriverMySQL, DriverPostgres:
	default:
		return nil, fmt.Errorf("mapping: unsupported driver %q", cfg.Driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening mapping database: %w", err)
	}
	if driver == DriverSQLite {
		// A single connection serialises writers and keeps :memory: databases
		// alive across calls.
		db.SetMaxOpenConns(1)
	}

	s, err := NewSQLStore(ctx, db, driver, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLStore wraps an open database and creates the schema if needed.
func NewSQLStore(ctx context.Context, db *sql.DB, driver string, opts ...Option) (*SQLStore, error) {
	s := &SQLStore{db: db, driver: driver, logger: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	if err := s.createSchema(ctx); err != nil {
		return nil, fmt.Errorf("creating mapping schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) createSchema(ctx context.Context) error {
	for _, table := range []string{"items", "properties"} {
		for _, stmt := range schemaFor(s.driver, table) {
			if err := s.withRetry(ctx, func() error {
				_, err := s.db.ExecContext(ctx, stmt)
				return err
			}); err != nil {
				return fmt.Errorf("executing schema statement for %s: %w", table, err)
			}
		}
	}
	return nil
}

func schemaFor(driver, table string) []string {
	switch driver {
	case DriverMySQL:
		return []string{
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %[1]s (
				id INT AUTO_INCREMENT PRIMARY KEY,
				foreign_id BIGINT NOT NULL,
				local_id BIGINT NOT NULL,
				fully_imported BOOLEAN NOT NULL DEFAULT FALSE,
				UNIQUE KEY uq_%[1]s_foreign_id (foreign_id),
				KEY idx_%[1]s_local_id (local_id)
			)`, table),
		}
	case DriverPostgres:
		return []string{
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
				id SERIAL PRIMARY KEY,
				foreign_id BIGINT NOT NULL,
				local_id BIGINT NOT NULL,
				fully_imported BOOLEAN NOT NULL DEFAULT FALSE
			)`, table),
			fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS uq_%[1]s_foreign_id ON %[1]s(foreign_id)`, table),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%[1]s_local_id ON %[1]s(local_id)`, table),
		}
	default:
		return []string{
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				foreign_id INTEGER NOT NULL,
				local_id INTEGER NOT NULL,
				fully_imported BOOLEAN NOT NULL DEFAULT 0
			)`, table),
			fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS uq_%[1]s_foreign_id ON %[1]s(foreign_id)`, table),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%[1]s_local_id ON %[1]s(local_id)`, table),
		}
	}
}

// rebind rewrites ? placeholders to $n for postgres.
func (s *SQLStore) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) insertQuery(table string) string {
	switch s.driver {
	case DriverMySQL:
		return fmt.Sprintf(`INSERT IGNORE INTO %s (foreign_id, local_id, fully_imported) VALUES (?, ?, ?)`, table)
	default:
		return s.rebind(fmt.Sprintf(
			`INSERT INTO %s (foreign_id, local_id, fully_imported) VALUES (?, ?, ?) ON CONFLICT(foreign_id) DO NOTHING`, table))
	}
}

func (s *SQLStore) Lookup(ctx context.Context, foreignID types.EntityID) (Entry, bool, error) {
	return s.lookup(ctx, foreignID.Namespace, "foreign_id", foreignID.Numeric)
}

func (s *SQLStore) LookupByLocal(ctx context.Context, localID types.EntityID) (Entry, bool, error) {
	return s.lookup(ctx, localID.Namespace, "local_id", localID.Numeric)
}

func (s *SQLStore) lookup(ctx context.Context, ns types.Namespace, column string, value int64) (Entry, bool, error) {
	query := s.rebind(fmt.Sprintf(
		`SELECT foreign_id, local_id, fully_imported FROM %s WHERE %s = ? ORDER BY id LIMIT 1`,
		tableFor(ns), column))

	var (
		foreign, local int64
		full           bool
		found          bool
	)
	err := s.withRetry(ctx, func() error {
		err := s.db.QueryRowContext(ctx, query, value).Scan(&foreign, &local, &full)
		if errors.Is(err, sql.ErrNoRows) {
			found = false
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		return Entry{}, false, fmt.Errorf("looking up %s %s=%d: %w", tableFor(ns), column, value, err)
	}
	if !found {
		return Entry{}, false, nil
	}
	return Entry{
		ForeignID:     types.EntityID{Namespace: ns, Numeric: foreign},
		LocalID:       types.EntityID{Namespace: ns, Numeric: local},
		FullyImported: full,
	}, true, nil
}

func (s *SQLStore) Insert(ctx context.Context, foreignID, localID types.EntityID, fullyImported bool) (Entry, error) {
	if foreignID.Namespace != localID.Namespace {
		return Entry{}, fmt.Errorf("mapping %s to %s: namespaces differ", foreignID, localID)
	}
	query := s.insertQuery(tableFor(foreignID.Namespace))
	err := s.withRetry(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, foreignID.Numeric, localID.Numeric, fullyImported)
		return err
	})
	if err != nil {
		return Entry{}, fmt.Errorf("inserting mapping %s -> %s: %w", foreignID, localID, err)
	}

	e, ok, err := s.Lookup(ctx, foreignID)
	if err != nil {
		return Entry{}, err
	}
	if !ok {
		return Entry{}, fmt.Errorf("mapping for %s missing after insert", foreignID)
	}
	if e.LocalID != localID {
		s.logger.Debug("mapping insert lost to concurrent writer",
			zap.Stringer("foreign_id", foreignID),
			zap.Stringer("local_id", e.LocalID))
	}
	return e, nil
}

func (s *SQLStore) MarkFullyImported(ctx context.Context, foreignID types.EntityID) error {
	query := s.rebind(fmt.Sprintf(`UPDATE %s SET fully_imported = ? WHERE foreign_id = ?`, tableFor(foreignID.Namespace)))
	err := s.withRetry(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, true, foreignID.Numeric)
		return err
	})
	if err != nil {
		return fmt.Errorf("marking %s fully imported: %w", foreignID, err)
	}
	return nil
}

// List returns every row of namespace ns ordered by insertion.
func (s *SQLStore) List(ctx context.Context, ns types.Namespace) ([]Entry, error) {
	query := fmt.Sprintf(`SELECT foreign_id, local_id, fully_imported FROM %s ORDER BY id`, tableFor(ns))
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", tableFor(ns), err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			foreign, local int64
			full           bool
		)
		if err := rows.Scan(&foreign, &local, &full); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", tableFor(ns), err)
		}
		out = append(out, Entry{
			ForeignID:     types.EntityID{Namespace: ns, Numeric: foreign},
			LocalID:       types.EntityID{Namespace: ns, Numeric: local},
			FullyImported: full,
		})
	}
	return out, rows.Err()
}

// withRetry runs op, retrying transient connection errors for server
// drivers. SQLite runs op once.
func (s *SQLStore) withRetry(ctx context.Context, op func() error) error {
	if s.driver == DriverSQLite {
		return op()
	}
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = retryMaxElapsed
	return backoff.RetryNotify(func() error {
		err := op()
		if err != nil && !isRetryableError(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(bo, ctx), func(err error, d time.Duration) {
		s.logger.Warn("mapping store retry", zap.Error(err), zap.Duration("backoff", d))
	})
}

// isRetryableError reports whether err is a transient connection error.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{
		"driver: bad connection",
		"invalid connection",
		"broken pipe",
		"connection reset",
		"connection refused",
		"lost connection",
		"gone away",
		"i/o timeout",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
