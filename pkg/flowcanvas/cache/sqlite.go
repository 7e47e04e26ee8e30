package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

const sqliteSchemaVersion = 1

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS cache_slots (
	graph_id TEXT    NOT NULL,
	slot     TEXT    NOT NULL,
	saved_at INTEGER NOT NULL,
	data     BLOB    NOT NULL,
	PRIMARY KEY (graph_id, slot)
)`

// SQLiteStore keeps cache slots in a SQLite file so they survive
// restarts. It is meant for a single process.
type SQLiteStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	quota  int64
	closed bool
}

// SQLiteOption configures a SQLiteStore.
type SQLiteOption func(*SQLiteStore)

// WithSQLiteQuota limits the total size of stored slots in bytes, like
// WithQuota does for MemoryStore.
// Default: unlimited
func WithSQLiteQuota(bytes int64) SQLiteOption {
	return func(s *SQLiteStore) {
		s.quota = bytes
	}
}

// NewSQLiteStore opens path, creating the file and schema if needed.
// ":memory:" gives a private in-memory database.
func NewSQLiteStore(path string, opts ...SQLiteOption) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}
	// each :memory: connection would be its own database
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteStore{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow(`PRAGMA user_version`).Scan(&version); err != nil {
		return fmt.Errorf("read cache schema version: %w", err)
	}
	if version > sqliteSchemaVersion {
		return fmt.Errorf("cache schema version %d is newer than supported version %d", version, sqliteSchemaVersion)
	}
	for _, stmt := range []string{
		`PRAGMA journal_mode=WAL`,
		sqliteSchema,
		fmt.Sprintf(`PRAGMA user_version = %d`, sqliteSchemaVersion),
	} {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("prepare cache schema: %w", err)
		}
	}
	return nil
}

// use runs fn while the store is open. Writers take the exclusive lock.
func (s *SQLiteStore) use(write bool, fn func(db *sql.DB) error) error {
	if write {
		s.mu.Lock()
		defer s.mu.Unlock()
	} else {
		s.mu.RLock()
		defer s.mu.RUnlock()
	}
	if s.closed {
		return ErrStoreClosed
	}
	return fn(s.db)
}

// Save implements Store.
func (s *SQLiteStore) Save(graphID, slot string, data []byte) error {
	if data == nil {
		data = []byte{}
	}
	return s.use(true, func(db *sql.DB) error {
		if s.quota > 0 {
			var others int64
			err := db.QueryRow(`
				SELECT COALESCE(SUM(LENGTH(data)), 0) FROM cache_slots
				WHERE NOT (graph_id = ? AND slot = ?)`, graphID, slot).Scan(&others)
			if err != nil {
				return fmt.Errorf("measure cache: %w", err)
			}
			if next := others + int64(len(data)); next > s.quota {
				return fmt.Errorf("%w: %d of %d bytes", ErrQuotaExceeded, next, s.quota)
			}
		}
		_, err := db.Exec(`
			INSERT INTO cache_slots (graph_id, slot, saved_at, data) VALUES (?, ?, ?, ?)
			ON CONFLICT (graph_id, slot) DO UPDATE SET saved_at = excluded.saved_at, data = excluded.data`,
			graphID, slot, time.Now().UnixMilli(), data)
		if err != nil {
			return fmt.Errorf("save cache slot %s/%s: %w", graphID, slot, err)
		}
		return nil
	})
}

// Load implements Store.
func (s *SQLiteStore) Load(graphID, slot string) ([]byte, error) {
	var data []byte
	err := s.use(false, func(db *sql.DB) error {
		err := db.QueryRow(`SELECT data FROM cache_slots WHERE graph_id = ? AND slot = ?`, graphID, slot).Scan(&data)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return ErrNotFound
		case err != nil:
			return fmt.Errorf("load cache slot %s/%s: %w", graphID, slot, err)
		}
		return nil
	})
	return data, err
}

// List implements Store.
func (s *SQLiteStore) List(graphID string) ([]Info, error) {
	infos := []Info{}
	err := s.use(false, func(db *sql.DB) error {
		rows, err := db.Query(`
			SELECT slot, saved_at, LENGTH(data) FROM cache_slots
			WHERE graph_id = ? ORDER BY slot`, graphID)
		if err != nil {
			return fmt.Errorf("list cache slots: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			info := Info{GraphID: graphID}
			var savedAt int64
			if err := rows.Scan(&info.Slot, &savedAt, &info.Size); err != nil {
				return fmt.Errorf("scan cache slot: %w", err)
			}
			info.Timestamp = time.UnixMilli(savedAt).UTC()
			infos = append(infos, info)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return infos, nil
}

// Delete implements Store.
func (s *SQLiteStore) Delete(graphID, slot string) error {
	return s.exec(`DELETE FROM cache_slots WHERE graph_id = ? AND slot = ?`, graphID, slot)
}

// DeleteGraph implements Store.
func (s *SQLiteStore) DeleteGraph(graphID string) error {
	return s.exec(`DELETE FROM cache_slots WHERE graph_id = ?`, graphID)
}

func (s *SQLiteStore) exec(query string, args ...any) error {
	return s.use(true, func(db *sql.DB) error {
		if _, err := db.Exec(query, args...); err != nil {
			return fmt.Errorf("delete cache slots: %w", err)
		}
		return nil
	})
}

// Graphs returns the ids of every graph with at least one slot, sorted.
func (s *SQLiteStore) Graphs() ([]string, error) {
	var ids []string
	err := s.use(false, func(db *sql.DB) error {
		rows, err := db.Query(`SELECT DISTINCT graph_id FROM cache_slots ORDER BY graph_id`)
		if err != nil {
			return fmt.Errorf("list cached graphs: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return fmt.Errorf("scan graph id: %w", err)
			}
			ids = append(ids, id)
		}
		return rows.Err()
	})
	return ids, err
}

// Close implements Store. Closing twice is a no-op.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
