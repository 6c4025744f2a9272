// Package database provides the manifest cache for codevis.
//
// It implements the Store interface using SQLite. Manifests fetched from a
// repository host are kept so that reopening the same repository within a
// session does not spend API quota again. The default location is an
// in-memory database; pointing the cache at a file is opt-in. Only
// manifests are stored, never view state.
package database

import (
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Mr-Dark-debug/codevis/internal/graph"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaFS embed.FS

// ErrNotFound is returned when no manifest is stored under a key.
var ErrNotFound = errors.New("manifest not found")

// Store defines the interface for manifest persistence.
// This abstraction allows for mocking in tests.
type Store interface {
	// SaveManifest replaces the manifest stored under m.Key.
	SaveManifest(m *Manifest) error
	// GetManifest returns the manifest stored under key, or ErrNotFound.
	GetManifest(key string) (*Manifest, error)
	// ListManifests returns manifest headers, most recent first.
	ListManifests(limit int) ([]*ManifestInfo, error)
	// DeleteManifest removes a manifest and its entries.
	DeleteManifest(key string) error
	// Purge removes manifests fetched before the cutoff and returns how many.
	Purge(before time.Time) (int64, error)

	// Close gracefully shuts down the database connection.
	Close() error
}

// ============================================================
// Domain Models
// ============================================================

// ManifestInfo is the header of a cached manifest.
type ManifestInfo struct {
	Key        string            `json:"key"`
	Source     string            `json:"source"`
	FetchedAt  int64             `json:"fetched_at"` // Unix nanoseconds
	Truncated  bool              `json:"truncated"`
	EntryCount int               `json:"entry_count"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Manifest is a cached manifest with its entries in original order.
type Manifest struct {
	ManifestInfo
	Entries []graph.Entry `json:"entries"`
}

// ============================================================
// DBService Implementation
// ============================================================

// DBService implements the Store interface using SQLite.
// It serializes writers through a read-write mutex.
type DBService struct {
	db   *sql.DB
	mu   sync.RWMutex
	path string

	stmtUpsertManifest *sql.Stmt
	stmtInsertEntry    *sql.Stmt
}

// NewDBService opens (or creates) the cache database and applies the schema.
//
// Use ":memory:" for a cache that lives only as long as the process.
func NewDBService(path string) (*DBService, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=ON", path)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database at %s: %w", path, err)
	}

	// One connection: SQLite has a single writer, and an in-memory
	// database exists per connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	svc := &DBService{
		db:   db,
		path: path,
	}

	if err := svc.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	if err := svc.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("preparing statements: %w", err)
	}

	return svc, nil
}

// Path returns the database location the service was opened with.
func (s *DBService) Path() string { return s.path }

func (s *DBService) initSchema() error {
	schema, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("reading embedded schema: %w", err)
	}

	if _, err := s.db.Exec(string(schema)); err != nil {
		return fmt.Errorf("executing schema: %w", err)
	}

	return nil
}

func (s *DBService) prepareStatements() error {
	var err error

	s.stmtUpsertManifest, err = s.db.Prepare(`
		INSERT INTO manifests (manifest_key, source, fetched_at, truncated, entry_count, metadata)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(manifest_key) DO UPDATE SET
			source = excluded.source,
			fetched_at = excluded.fetched_at,
			truncated = excluded.truncated,
			entry_count = excluded.entry_count,
			metadata = excluded.metadata
	`)
	if err != nil {
		return fmt.Errorf("preparing UpsertManifest: %w", err)
	}

	s.stmtInsertEntry, err = s.db.Prepare(`
		INSERT INTO manifest_entries (manifest_key, seq, path, kind) VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing InsertEntry: %w", err)
	}

	return nil
}

// SaveManifest stores m in a single transaction, replacing any previous
// entries under the same key.
func (s *DBService) SaveManifest(m *Manifest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var metadataJSON *string
	if m.Metadata != nil {
		b, err := json.Marshal(m.Metadata)
		if err != nil {
			return fmt.Errorf("marshaling manifest metadata: %w", err)
		}
		str := string(b)
		metadataJSON = &str
	}
	if m.FetchedAt == 0 {
		m.FetchedAt = time.Now().UnixNano()
	}
	m.EntryCount = len(m.Entries)

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning manifest transaction: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if _, err := tx.Exec(`DELETE FROM manifest_entries WHERE manifest_key = ?`, m.Key); err != nil {
		return fmt.Errorf("clearing entries for %s: %w", m.Key, err)
	}
	if _, err := tx.Stmt(s.stmtUpsertManifest).Exec(
		m.Key, m.Source, m.FetchedAt, m.Truncated, m.EntryCount, metadataJSON,
	); err != nil {
		return fmt.Errorf("upserting manifest %s: %w", m.Key, err)
	}

	stmt := tx.Stmt(s.stmtInsertEntry)
	for i, e := range m.Entries {
		if _, err := stmt.Exec(m.Key, i, e.Path, e.Kind); err != nil {
			return fmt.Errorf("inserting entry %d of %s: %w", i, m.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing manifest %s: %w", m.Key, err)
	}
	return nil
}

// GetManifest loads a manifest and its entries in stored order.
func (s *DBService) GetManifest(key string) (*Manifest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`
		SELECT manifest_key, source, fetched_at, truncated, entry_count, metadata
		FROM manifests WHERE manifest_key = ?
	`, key)
	info, err := scanInfo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying manifest %s: %w", key, err)
	}

	rows, err := s.db.Query(`
		SELECT path, kind FROM manifest_entries
		WHERE manifest_key = ?
		ORDER BY seq ASC
	`, key)
	if err != nil {
		return nil, fmt.Errorf("querying entries for %s: %w", key, err)
	}
	defer rows.Close()

	m := &Manifest{ManifestInfo: *info, Entries: make([]graph.Entry, 0, info.EntryCount)}
	for rows.Next() {
		var e graph.Entry
		if err := rows.Scan(&e.Path, &e.Kind); err != nil {
			return nil, fmt.Errorf("scanning entry row: %w", err)
		}
		m.Entries = append(m.Entries, e)
	}
	return m, rows.Err()
}

// ListManifests returns cached manifest headers, most recently fetched
// first. A non-positive limit defaults to 100.
func (s *DBService) ListManifests(limit int) ([]*ManifestInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(`
		SELECT manifest_key, source, fetched_at, truncated, entry_count, metadata
		FROM manifests
		ORDER BY fetched_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying manifests: %w", err)
	}
	defer rows.Close()

	var out []*ManifestInfo
	for rows.Next() {
		info, err := scanInfo(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning manifest row: %w", err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// DeleteManifest removes a manifest. Deleting a missing key is not an error.
func (s *DBService) DeleteManifest(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM manifests WHERE manifest_key = ?`, key); err != nil {
		return fmt.Errorf("deleting manifest %s: %w", key, err)
	}
	return nil
}

// Purge removes every manifest fetched before the cutoff.
func (s *DBService) Purge(before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM manifests WHERE fetched_at < ?`, before.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("purging manifests: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Close releases prepared statements and the underlying connection pool.
func (s *DBService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, stmt := range []*sql.Stmt{s.stmtUpsertManifest, s.stmtInsertEntry} {
		if stmt != nil {
			stmt.Close()
		}
	}

	return s.db.Close()
}

// ============================================================
// Scan Helpers
// ============================================================

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInfo(r rowScanner) (*ManifestInfo, error) {
	info := &ManifestInfo{}
	var metadataStr *string
	if err := r.Scan(&info.Key, &info.Source, &info.FetchedAt, &info.Truncated, &info.EntryCount, &metadataStr); err != nil {
		return nil, err
	}
	if metadataStr != nil {
		info.Metadata = make(map[string]string)
		if err := json.Unmarshal([]byte(*metadataStr), &info.Metadata); err != nil {
			// Non-fatal: metadata is supplementary
			info.Metadata = map[string]string{"_raw": *metadataStr}
		}
	}
	return info, nil
}
