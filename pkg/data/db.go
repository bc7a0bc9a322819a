package data

import (
	"context"
	"database/sql"
	"embed"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

const (
	DataFileName = "data.db"

	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	schemaVersion = 1
	dirMode       = 0700
)

var (
	//go:embed sql/*
	f embed.FS

	ErrUnknownDriver = errors.New("unknown database driver")
	ErrNotFound      = errors.New("record not found")
)

// Store persists evaluation runs in SQLite or Postgres.
type Store struct {
	db     *sql.DB
	driver string
}

// OpenFile opens (and creates when missing) a SQLite store at path.
func OpenFile(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("database file path not specified")
	}
	if err := os.MkdirAll(filepath.Dir(path), dirMode); err != nil {
		return nil, errors.Wrapf(err, "failed to create database dir for: %s", path)
	}
	return Open(DriverSQLite, path)
}

// Open connects to the database and applies the schema.
func Open(driver, dsn string) (*Store, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, errors.Wrapf(ErrUnknownDriver, "driver: %q", driver)
	}
	if dsn == "" {
		return nil, errors.New("database connection string not specified")
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s database", driver)
	}
	if driver == DriverSQLite {
		// single writer avoids "database is locked" under the API server
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "failed to connect to %s database", driver)
	}

	s := &Store{db: db, driver: driver}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Driver returns the configured driver name.
func (s *Store) Driver() string {
	return s.driver
}

// SchemaVersion returns the highest applied schema version.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	if err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&v); err != nil {
		return 0, errors.Wrap(err, "failed to read schema version")
	}
	return v, nil
}

func (s *Store) migrate() error {
	b, err := f.ReadFile("sql/ddl.sql")
	if err != nil {
		return errors.Wrap(err, "failed to read the schema creation file")
	}

	slog.Debug("applying db schema", "driver", s.driver)
	if _, err := s.db.Exec(string(b)); err != nil {
		return errors.Wrapf(err, "failed to create %s database schema", s.driver)
	}

	q := s.rebind("INSERT INTO schema_version (version, applied_at) VALUES (?, ?) ON CONFLICT (version) DO NOTHING")
	if _, err := s.db.Exec(q, schemaVersion, formatTime(time.Now())); err != nil {
		return errors.Wrap(err, "failed to record schema version")
	}
	return nil
}

// rebind rewrites ? placeholders to $n for Postgres.
func (s *Store) rebind(q string) string {
	if s.driver != DriverPostgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
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
