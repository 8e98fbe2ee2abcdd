// Package store provides the durable state of the document node: the data
// record aggregate tables and the append-only action log, backed by SQLite
// for embedded deployments or PostgreSQL for shared ones.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

//go:embed schema_sqlite.sql
var schemaSQLite string

//go:embed schema_postgres.sql
var schemaPostgres string

// Supported driver names, matching database/sql registration.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Store wraps the SQL database holding data records, sections, fields and
// the action log. All queries are explicit; there is no ORM layer.
type Store struct {
	db     *sql.DB
	driver string
	logger *zap.Logger
}

// Open opens the database, configures the connection pool and applies the
// schema. It is idempotent: the schema uses CREATE TABLE IF NOT EXISTS.
func Open(driver, dsn string, logger *zap.Logger) (*Store, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Store{db: db, driver: driver, logger: logger}

	if driver == DriverSQLite {
		// SQLite supports one writer at a time; a single connection avoids
		// SQLITE_BUSY under concurrent coordinator and sweeper writes.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		if err := s.applyPragmas(); err != nil {
			db.Close()
			return nil, err
		}
	} else {
		db.SetMaxOpenConns(20)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(time.Hour)
	}

	if err := s.applySchema(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("Database opened", zap.String("driver", driver))
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping verifies the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// DB returns the underlying sql.DB for direct queries. Prefer the Store
// methods; this exists for callers that need raw access, such as tests.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) applyPragmas() error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := s.db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func (s *Store) applySchema() error {
	schema := schemaSQLite
	if s.driver == DriverPostgres {
		schema = schemaPostgres
	}
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// rebind rewrites ? placeholders into $N form for PostgreSQL. Queries in this
// package are written with ? so both drivers share one query text.
func (s *Store) rebind(query string) string {
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

// now returns the timestamp written into created_at/modified_at columns.
// Stored in UTC so the staleness comparison is wall-clock independent.
func (s *Store) now() time.Time {
	return time.Now().UTC()
}
