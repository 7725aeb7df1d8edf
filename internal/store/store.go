// Package store owns all persisted state. Each user gets an isolated
// SQLite database file; no rows are shared across users. The Manager
// opens stores lazily, caches the handles for the process lifetime and
// hands out per-user locks so syncs for one user never run in parallel.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Manager opens and caches per-user stores under a data directory.
type Manager struct {
	dataDir string

	mu     sync.Mutex
	stores map[string]*UserStore
	locks  map[string]*sync.Mutex
}

// NewManager creates a store manager rooted at dataDir. The directory
// is created on first use.
func NewManager(dataDir string) *Manager {
	return &Manager{
		dataDir: dataDir,
		stores:  make(map[string]*UserStore),
		locks:   make(map[string]*sync.Mutex),
	}
}

// ForUser returns the store for the given user, opening and migrating
// the underlying database file on first access.
func (m *Manager) ForUser(userID string) (*UserStore, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if st, ok := m.stores[userID]; ok {
		return st, nil
	}

	if err := os.MkdirAll(m.dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	path := filepath.Join(m.dataDir, userFileName(userID))
	db, err := openUserDB(path)
	if err != nil {
		return nil, fmt.Errorf("open store for user %s: %w", userID, err)
	}

	st := &UserStore{db: db, userID: userID}
	m.stores[userID] = st
	return st, nil
}

// SyncLock returns the mutex that serializes sync cycles for one user.
// Locks for different users are independent.
func (m *Manager) SyncLock(userID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	lock, ok := m.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[userID] = lock
	}
	return lock
}

// Close closes every open store.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for id, st := range m.stores {
		if err := st.db.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close store for user %s: %w", id, err)
		}
		delete(m.stores, id)
	}
	return firstErr
}

// openUserDB opens one SQLite file with WAL journaling (concurrent
// readers, single writer), enforced foreign keys and a busy timeout,
// then applies the idempotent schema.
func openUserDB(path string) (*sqlx.DB, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_loc=UTC", path)
	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	// SQLite permits one writer at a time; a single connection avoids
	// SQLITE_BUSY churn between the pool's connections.
	db.SetMaxOpenConns(1)

	if err := createUserSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return db, nil
}

// userFileName maps a user id to a database filename. Identity provider
// ids are URL-safe in practice; anything else is normalized so the id
// cannot escape the data directory.
func userFileName(userID string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, userID)
	return fmt.Sprintf("user_%s.db", safe)
}
