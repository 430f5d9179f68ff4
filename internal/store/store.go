package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// MemoryPath opens a private in-memory journal. It lives as long as the
// Store's single connection.
const MemoryPath = ":memory:"

// migration upgrades a journal to version.
type migration struct {
	version int
	stmt    string
}

// migrations run in order against journals whose user_version is lower.
// A fresh journal gets the base schema from schema.sql and then every
// migration, so each statement must be idempotent.
var migrations = []migration{
	{
		// Undo/redo audits filter by origin.
		version: 1,
		stmt:    `CREATE INDEX IF NOT EXISTS idx_events_origin ON events(session_id, origin, seq)`,
	},
	{
		// LatestSnapshot reads the newest snapshot at or before a seq.
		version: 2,
		stmt:    `CREATE INDEX IF NOT EXISTS idx_snapshots_session ON snapshots(session_id, seq DESC)`,
	},
}

// currentSchemaVersion is the user_version of a fully migrated journal.
var currentSchemaVersion = migrations[len(migrations)-1].version

// Store is a SQLite session journal. It holds a single connection, so
// writes from several goroutines queue behind each other instead of
// failing with SQLITE_BUSY.
type Store struct {
	db *sql.DB
}

type config struct {
	busyTimeout time.Duration
	wal         bool
}

// OpenOption configures Open.
type OpenOption func(*config)

// WithBusyTimeout sets how long a statement waits for a lock held by
// another process. Default: 5s.
func WithBusyTimeout(d time.Duration) OpenOption {
	return func(c *config) {
		c.busyTimeout = d
	}
}

// WithoutWAL keeps SQLite's rollback journal instead of switching the
// file to WAL mode.
func WithoutWAL() OpenOption {
	return func(c *config) {
		c.wal = false
	}
}

// Open creates or opens the journal at path (MemoryPath for a throwaway
// one) and brings its schema up to date. Opening an up-to-date journal
// changes nothing.
func Open(path string, opts ...OpenOption) (*Store, error) {
	cfg := config{busyTimeout: 5 * time.Second, wal: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	if path == MemoryPath {
		cfg.wal = false
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := configure(db, cfg); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying connection pool for ad-hoc queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

func configure(db *sql.DB, cfg config) error {
	pragmas := []string{
		"PRAGMA synchronous = NORMAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.busyTimeout.Milliseconds()),
		"PRAGMA foreign_keys = ON",
	}
	if cfg.wal {
		pragmas = append([]string{"PRAGMA journal_mode = WAL"}, pragmas...)
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// migrate applies the base schema and every migration newer than the
// journal's user_version, then records the new version.
func migrate(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	for _, m := range migrations {
		if m.version <= version {
			continue
		}
		if _, err := db.Exec(m.stmt); err != nil {
			return fmt.Errorf("migrate to v%d: %w", m.version, err)
		}
	}
	if version >= currentSchemaVersion {
		return nil
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// pragma returns the current value of a pragma as text.
func (s *Store) pragma(name string) (string, error) {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return "", fmt.Errorf("failed to query %s: %w", name, err)
	}
	return value, nil
}
