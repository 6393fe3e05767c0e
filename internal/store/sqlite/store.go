// Package sqlite is the durable article cache: wikis and article
// snapshots in one SQLite database, with cascade delete from wiki to
// articles and post-write change events on an in-process broker.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/offcache/wikicache/internal/store/notify"
)

var (
	// ErrWikiNotFound is returned when an operation targets a wiki id
	// that does not exist.
	ErrWikiNotFound = errors.New("wiki not found")

	// ErrProtectedWiki is returned when deleting a wiki the protection
	// policy refuses to remove.
	ErrProtectedWiki = errors.New("wiki is protected and cannot be deleted")
)

// dsnPragmas is appended to every database path. The modernc driver
// replays these on each new connection (see the _pragma query
// parameter), which is what makes foreign key cascades hold across the
// whole connection pool.
const dsnPragmas = "?_pragma=foreign_keys(1)" +
	"&_pragma=busy_timeout(10000)" +
	"&_pragma=journal_mode(WAL)" +
	"&_pragma=synchronous(NORMAL)"

// ProtectedFunc decides whether a wiki id may be deleted.
type ProtectedFunc func(id int64) bool

// DefaultProtected protects the seeded default wiki (id 1) so the cache
// always has at least one usable site.
func DefaultProtected(id int64) bool { return id == 1 }

// Store wraps the SQLite database for cache operations.
type Store struct {
	db        *sql.DB
	broker    *notify.Broker
	protected ProtectedFunc
}

// Open opens (creating if needed) the database at path, applies the
// production pragmas and the schema, and returns a ready Store.
// Pass notify.NewBroker() unless observers are shared elsewhere, and nil
// for protected to use DefaultProtected.
func Open(path string, broker *notify.Broker, protected ProtectedFunc) (*Store, error) {
	if path == "" {
		return nil, errors.New("sqlite: empty database path")
	}
	if broker == nil {
		broker = notify.NewBroker()
	}
	if protected == nil {
		protected = DefaultProtected
	}

	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("sqlite: mkdir: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path+dsnPragmas)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	// the pool would hand each connection its own private in-memory db
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	return &Store{db: db, broker: broker, protected: protected}, nil
}

// Broker exposes the change broker for observers.
func (s *Store) Broker() *notify.Broker { return s.broker }

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection, for readiness checks.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }
