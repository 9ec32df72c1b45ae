// Package memory is the conversation memory of reasonkit.
//
// Entries are free text with a JSON metadata object, stored in SQLite and
// indexed with FTS5 so that reasoning tools can recall earlier decisions
// across sessions.
package memory

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// timeNow is swapped in tests.
var timeNow = time.Now

// ErrNotFound is returned when no entry has the requested id.
var ErrNotFound = errors.New("memory entry not found")

// Entry is one stored memory.
type Entry struct {
	ID        string         `json:"id"`
	Text      string         `json:"text"`
	Metadata  map[string]any `json:"metadata"`
	CreatedAt string         `json:"created_at"`
	UpdatedAt string         `json:"updated_at"`
}

// QueryResult is an entry with its relevance score. Higher is better.
type QueryResult struct {
	Entry
	Score float64 `json:"score"`
}

// Config holds memory store configuration.
type Config struct {
	DataDir         string
	MaxTextLength   int
	MaxQueryResults int
}

// DefaultConfig returns the default configuration for the memory store.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		DataDir:         filepath.Join(home, ".reasonkit"),
		MaxTextLength:   20000,
		MaxQueryResults: 50,
	}
}

// Store is the conversation memory backed by SQLite + FTS5.
type Store struct {
	db  *sql.DB
	cfg Config
}

// New opens (or creates) memory.db in cfg.DataDir and migrates the schema.
func New(cfg Config) (*Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("memory: create data dir: %w", err)
	}

	dbPath := filepath.Join(cfg.DataDir, "memory.db")
	db, err := openDB("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("memory: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("memory: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, cfg: cfg}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("memory: migration: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS memories (
			seq        INTEGER PRIMARY KEY AUTOINCREMENT,
			id         TEXT    NOT NULL UNIQUE,
			text       TEXT    NOT NULL,
			metadata   TEXT    NOT NULL DEFAULT '{}',
			created_at TEXT    NOT NULL,
			updated_at TEXT    NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_mem_created ON memories(created_at DESC);

		CREATE VIRTUAL TABLE IF NOT EXISTS memories_fts USING fts5(
			text,
			metadata,
			content='memories',
			content_rowid='seq'
		);
	`); err != nil {
		return err
	}

	var name string
	err := s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='trigger' AND name='mem_fts_insert'",
	).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		_, err = s.db.Exec(`
			CREATE TRIGGER mem_fts_insert AFTER INSERT ON memories BEGIN
				INSERT INTO memories_fts(rowid, text, metadata)
				VALUES (new.seq, new.text, new.metadata);
			END;

			CREATE TRIGGER mem_fts_delete AFTER DELETE ON memories BEGIN
				INSERT INTO memories_fts(memories_fts, rowid, text, metadata)
				VALUES ('delete', old.seq, old.text, old.metadata);
			END;

			CREATE TRIGGER mem_fts_update AFTER UPDATE ON memories BEGIN
				INSERT INTO memories_fts(memories_fts, rowid, text, metadata)
				VALUES ('delete', old.seq, old.text, old.metadata);
				INSERT INTO memories_fts(rowid, text, metadata)
				VALUES (new.seq, new.text, new.metadata);
			END;
		`)
	}
	return err
}

// Upsert stores text under id, replacing any existing entry with that id.
// An empty id generates a new one.
func (s *Store) Upsert(id, text string, metadata map[string]any) (*Entry, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("memory: text is required")
	}
	text = Truncate(text, s.cfg.MaxTextLength)
	id = strings.TrimSpace(id)
	if id == "" {
		id = NewID()
	}
	meta, err := encodeMetadata(metadata)
	if err != nil {
		return nil, err
	}

	now := Now()
	if _, err := s.db.Exec(`
		INSERT INTO memories (id, text, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			text = excluded.text,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at
	`, id, text, meta, now, now); err != nil {
		return nil, fmt.Errorf("memory: upsert %s: %w", id, err)
	}
	return s.Get(id)
}

// Get returns the entry with the given id.
func (s *Store) Get(id string) (*Entry, error) {
	row := s.db.QueryRow(
		`SELECT id, text, metadata, created_at, updated_at FROM memories WHERE id = ?`, id,
	)
	e, err := scanEntry(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("memory: get %s: %w", id, err)
	}
	return e, nil
}

// Query ranks entries against text with FTS5 bm25 and returns at most k.
// An empty query returns the most recent entries.
func (s *Store) Query(text string, k int) ([]QueryResult, error) {
	k = s.clampLimit(k, 5)
	ftsQuery := sanitizeFTS(text)
	if ftsQuery == "" {
		entries, _, err := s.List(k, 0)
		if err != nil {
			return nil, err
		}
		results := make([]QueryResult, len(entries))
		for i, e := range entries {
			results[i] = QueryResult{Entry: e}
		}
		return results, nil
	}

	rows, err := s.db.Query(`
		SELECT m.id, m.text, m.metadata, m.created_at, m.updated_at, bm25(memories_fts)
		FROM memories_fts
		JOIN memories m ON m.seq = memories_fts.rowid
		WHERE memories_fts MATCH ?
		ORDER BY bm25(memories_fts)
		LIMIT ?
	`, ftsQuery, k)
	if err != nil {
		return nil, fmt.Errorf("memory: query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []QueryResult
	for rows.Next() {
		var rank float64
		e, err := scanEntry(func(dest ...any) error { return rows.Scan(append(dest, &rank)...) })
		if err != nil {
			return nil, err
		}
		// bm25 is lower for better matches.
		results = append(results, QueryResult{Entry: *e, Score: -rank})
	}
	return results, rows.Err()
}

// List returns entries newest first, and the total number of entries.
func (s *Store) List(limit, offset int) ([]Entry, int, error) {
	limit = s.clampLimit(limit, 20)
	offset = max(offset, 0)

	var total int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM memories`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("memory: count: %w", err)
	}

	rows, err := s.db.Query(`
		SELECT id, text, metadata, created_at, updated_at
		FROM memories
		ORDER BY created_at DESC, seq DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("memory: list: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows.Scan)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, *e)
	}
	return entries, total, rows.Err()
}

// Update replaces the text when text is non-nil and merges metadata into
// the stored metadata. A nil value in metadata removes that key.
func (s *Store) Update(id string, text *string, metadata map[string]any) (*Entry, error) {
	cur, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	newText := cur.Text
	if text != nil {
		newText = strings.TrimSpace(*text)
		if newText == "" {
			return nil, errors.New("memory: text must not be empty")
		}
		newText = Truncate(newText, s.cfg.MaxTextLength)
	}
	merged := cur.Metadata
	for k, v := range metadata {
		if v == nil {
			delete(merged, k)
			continue
		}
		merged[k] = v
	}
	meta, err := encodeMetadata(merged)
	if err != nil {
		return nil, err
	}
	if _, err := s.db.Exec(
		`UPDATE memories SET text = ?, metadata = ?, updated_at = ? WHERE id = ?`,
		newText, meta, Now(), id,
	); err != nil {
		return nil, fmt.Errorf("memory: update %s: %w", id, err)
	}
	return s.Get(id)
}

// Delete removes an entry. It reports whether the entry existed.
func (s *Store) Delete(id string) (bool, error) {
	res, err := s.db.Exec(`DELETE FROM memories WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("memory: delete %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Clear removes every entry and returns how many were removed.
func (s *Store) Clear() (int, error) {
	res, err := s.db.Exec(`DELETE FROM memories`)
	if err != nil {
		return 0, fmt.Errorf("memory: clear: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// Count returns the number of stored entries.
func (s *Store) Count() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM memories`).Scan(&n)
	return n, err
}

func (s *Store) clampLimit(n, def int) int {
	if n <= 0 {
		n = def
	}
	if s.cfg.MaxQueryResults > 0 && n > s.cfg.MaxQueryResults {
		n = s.cfg.MaxQueryResults
	}
	return n
}

func scanEntry(scan func(dest ...any) error) (*Entry, error) {
	var e Entry
	var meta string
	if err := scan(&e.ID, &e.Text, &meta, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.Metadata = map[string]any{}
	if meta != "" {
		if err := json.Unmarshal([]byte(meta), &e.Metadata); err != nil {
			return nil, fmt.Errorf("memory: decode metadata of %s: %w", e.ID, err)
		}
	}
	return &e, nil
}

func encodeMetadata(m map[string]any) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("memory: encode metadata: %w", err)
	}
	return string(b), nil
}

// NewID returns a fresh entry id of the form mem_<uuid>.
func NewID() string {
	return "mem_" + uuid.NewString()
}

// Truncate shortens s to at most max runes, marking the cut with "...".
func Truncate(s string, max int) string {
	r := []rune(s)
	if max <= 0 || len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

// sanitizeFTS quotes each word and ORs them so that any term can match;
// bm25 ranks entries matching more terms first.
// "fix auth bug" → `"fix" OR "auth" OR "bug"`
func sanitizeFTS(query string) string {
	words := strings.Fields(query)
	out := words[:0]
	for _, w := range words {
		w = strings.ReplaceAll(w, `"`, "")
		if w != "" {
			out = append(out, `"`+w+`"`)
		}
	}
	return strings.Join(out, " OR ")
}

// Now returns the current time formatted for SQLite.
func Now() string {
	return timeNow().UTC().Format("2006-01-02 15:04:05")
}
