// Package sqlstore provides a database/sql backed catalog with SQLite and
// Postgres dialects. The schema is applied on open.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/aretw0/procmeta/internal/logging"
	"github.com/aretw0/procmeta/pkg/ports"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "modernc.org/sqlite"             // pure go sqlite driver
)

const (
	// DefaultSQLitePath is used when OpenSQLite gets an empty path.
	DefaultSQLitePath = "procmeta.db"
	// DefaultPostgresDSN is used when OpenPostgres gets an empty DSN.
	DefaultPostgresDSN = "postgres://localhost/procmeta?sslmode=disable"
)

// Dialect names a supported SQL flavour.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

// rebind rewrites ? placeholders into the dialect's form.
func (d Dialect) rebind(query string) string {
	if d != Postgres {
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

// Store implements ports.Catalog on a relational database.
type Store struct {
	*repo
	db     *sql.DB
	logger *slog.Logger
}

var _ ports.Catalog = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for schema and transaction diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// OpenSQLite opens (or creates) a SQLite database file.
func OpenSQLite(path string, opts ...Option) (*Store, error) {
	if path == "" {
		path = DefaultSQLitePath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer at a time; a second connection would hit SQLITE_BUSY inside Atomic.
	db.SetMaxOpenConns(1)
	return newStore(db, SQLite, opts...)
}

// OpenPostgres connects to Postgres through pgx.
func OpenPostgres(dsn string, opts ...Option) (*Store, error) {
	if dsn == "" {
		dsn = DefaultPostgresDSN
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return newStore(db, Postgres, opts...)
}

func newStore(db *sql.DB, dialect Dialect, opts ...Option) (*Store, error) {
	s := &Store{db: db, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	s.repo = &repo{q: db, db: db, dialect: dialect}
	if err := applySchema(context.Background(), db, dialect); err != nil {
		_ = db.Close()
		return nil, err
	}
	s.logger.Debug("catalog schema ready", "dialect", dialect)
	return s, nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Dialect reports the SQL flavour of the store.
func (s *Store) Dialect() Dialect { return s.dialect }

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Atomic runs fn inside a database transaction.
func (s *Store) Atomic(ctx context.Context, fn func(tx ports.Catalog) error) error {
	err := s.repo.atomic(ctx, func(r *repo) error { return fn(r) })
	if err != nil {
		s.logger.Debug("catalog transaction rolled back", "err", err)
	}
	return err
}

func applySchema(ctx context.Context, db *sql.DB, dialect Dialect) error {
	for _, stmt := range schema(dialect) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute ddl: %w", err)
		}
	}
	return nil
}

func schema(dialect Dialect) []string {
	boolean := "BOOLEAN NOT NULL DEFAULT FALSE"
	if dialect == SQLite {
		boolean = "INTEGER NOT NULL DEFAULT 0"
	}
	return []string{
		`CREATE TABLE IF NOT EXISTS process_types (
			id TEXT PRIMARY KEY,
			code TEXT NOT NULL UNIQUE,
			name_en TEXT NOT NULL,
			name_ru TEXT NOT NULL,
			attributes_table TEXT,
			parent_id TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS process_states (
			id TEXT PRIMARY KEY,
			type_id TEXT NOT NULL,
			code TEXT NOT NULL,
			name_en TEXT NOT NULL,
			name_ru TEXT NOT NULL,
			color_code TEXT,
			allow_edit ` + boolean + `,
			allow_delete ` + boolean + `,
			start ` + boolean + `,
			operation_list_script TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS process_operations (
			id TEXT PRIMARY KEY,
			type_id TEXT NOT NULL,
			code TEXT NOT NULL,
			name_en TEXT NOT NULL,
			name_ru TEXT NOT NULL,
			icon TEXT,
			resource_url TEXT,
			availability_condition TEXT,
			cancel ` + boolean + `,
			move_to_state_script TEXT,
			workflow TEXT,
			database_name TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS operation_states (
			operation_id TEXT NOT NULL,
			state_id TEXT NOT NULL,
			ord INTEGER NOT NULL,
			PRIMARY KEY (operation_id, state_id)
		)`,
		`CREATE INDEX IF NOT EXISTS process_states_type_idx ON process_states (type_id)`,
		`CREATE INDEX IF NOT EXISTS process_operations_type_idx ON process_operations (type_id)`,
	}
}
