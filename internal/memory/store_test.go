package memory_test

import (
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/HendryAvila/reasonkit/internal/memory"
)

// newTestStore creates a Store backed by a temp directory for isolation.
func newTestStore(t *testing.T) *memory.Store {
	t.Helper()
	s, err := memory.New(memory.Config{
		DataDir:         t.TempDir(),
		MaxTextLength:   200,
		MaxQueryResults: 10,
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustUpsert(t *testing.T, s *memory.Store, id, text string, meta map[string]any) *memory.Entry {
	t.Helper()
	e, err := s.Upsert(id, text, meta)
	if err != nil {
		t.Fatalf("Upsert(%q) error: %v", id, err)
	}
	return e
}

// ─── New ────────────────────────────────────────────────────────────────────

func TestNew_WALAndReopen(t *testing.T) {
	dir := t.TempDir()
	cfg := memory.Config{DataDir: dir, MaxQueryResults: 10}

	s1, err := memory.New(cfg)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	var mode string
	if err := s1.DB().QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}
	mustUpsert(t, s1, "keep", "survives a reopen", nil)
	s1.Close()

	s2, err := memory.New(cfg)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer s2.Close()
	if _, err := s2.Get("keep"); err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if _, err := filepath.Abs(filepath.Join(dir, "memory.db")); err != nil {
		t.Fatal(err)
	}
}

func TestNew_OpenError(t *testing.T) {
	restore := memory.SetOpenDB(func(string, string) (*sql.DB, error) {
		return nil, errors.New("disk on fire")
	})
	defer restore()

	_, err := memory.New(memory.Config{DataDir: t.TempDir()})
	if err == nil || !strings.Contains(err.Error(), "disk on fire") {
		t.Fatalf("expected open error, got %v", err)
	}
}

// ─── Upsert / Get ───────────────────────────────────────────────────────────

func TestUpsert_GeneratesID(t *testing.T) {
	s := newTestStore(t)
	e := mustUpsert(t, s, "", "we chose PostgreSQL for orders", map[string]any{"session_id": "planning_1"})
	if !strings.HasPrefix(e.ID, "mem_") {
		t.Errorf("ID = %q, want mem_ prefix", e.ID)
	}
	if e.Metadata["session_id"] != "planning_1" {
		t.Errorf("metadata = %v", e.Metadata)
	}
}

func TestUpsert_ReplacesByID(t *testing.T) {
	s := newTestStore(t)
	defer memory.SetNow(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))()
	first := mustUpsert(t, s, "a", "first text", map[string]any{"k": "v"})

	defer memory.SetNow(time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC))()
	second := mustUpsert(t, s, "a", "second text", nil)

	if second.Text != "second text" {
		t.Errorf("Text = %q", second.Text)
	}
	if len(second.Metadata) != 0 {
		t.Errorf("metadata should be replaced, got %v", second.Metadata)
	}
	if second.CreatedAt != first.CreatedAt {
		t.Errorf("CreatedAt changed: %s -> %s", first.CreatedAt, second.CreatedAt)
	}
	if second.UpdatedAt != "2026-03-01 13:00:00" {
		t.Errorf("UpdatedAt = %s", second.UpdatedAt)
	}
	if n, _ := s.Count(); n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}

	// The FTS index follows the replacement.
	res, err := s.Query("first", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 0 {
		t.Errorf("stale text still indexed: %v", res)
	}
}

func TestUpsert_Validation(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Upsert("x", "   ", nil); err == nil {
		t.Fatal("expected error for empty text")
	}
	e := mustUpsert(t, s, "long", strings.Repeat("a", 500), nil)
	if len([]rune(e.Text)) != 203 {
		t.Errorf("text not truncated: %d runes", len([]rune(e.Text)))
	}
}

func TestGet_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get("missing")
	if !errors.Is(err, memory.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// ─── Query ──────────────────────────────────────────────────────────────────

func TestQuery_RanksByRelevance(t *testing.T) {
	s := newTestStore(t)
	mustUpsert(t, s, "db", "Use PostgreSQL for the orders database", nil)
	mustUpsert(t, s, "cache", "Redis cache in front of the orders database, cache invalidation on write", nil)
	mustUpsert(t, s, "ui", "Dashboard built with React", nil)

	res, err := s.Query("cache invalidation", 5)
	if err != nil {
		t.Fatalf("Query error: %v", err)
	}
	if len(res) != 1 || res[0].ID != "cache" {
		t.Fatalf("got %+v, want only cache", res)
	}
	if res[0].Score <= 0 {
		t.Errorf("Score = %f, want positive", res[0].Score)
	}

	res, err = s.Query("orders database", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 2 {
		t.Fatalf("got %d results, want 2", len(res))
	}
	if res[0].Score < res[1].Score {
		t.Errorf("results not sorted by score: %f < %f", res[0].Score, res[1].Score)
	}
}

func TestQuery_MetadataIsSearchable(t *testing.T) {
	s := newTestStore(t)
	mustUpsert(t, s, "m1", "decision text", map[string]any{"kind": "counterfactual"})
	res, err := s.Query("counterfactual", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 1 || res[0].ID != "m1" {
		t.Fatalf("got %+v", res)
	}
}

func TestQuery_EmptyFallsBackToRecent(t *testing.T) {
	s := newTestStore(t)
	defer memory.SetNow(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))()
	mustUpsert(t, s, "old", "old entry", nil)
	defer memory.SetNow(time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC))()
	mustUpsert(t, s, "new", "new entry", nil)

	for _, q := range []string{"", "   ", `""`} {
		res, err := s.Query(q, 5)
		if err != nil {
			t.Fatalf("Query(%q) error: %v", q, err)
		}
		if len(res) != 2 || res[0].ID != "new" {
			t.Errorf("Query(%q) = %+v, want newest first", q, res)
		}
	}
}

func TestQuery_SpecialCharacters(t *testing.T) {
	s := newTestStore(t)
	mustUpsert(t, s, "a", "AND OR NOT near the parser", nil)
	for _, q := range []string{`"unbalanced`, "NOT", "a:b", "(x)"} {
		if _, err := s.Query(q, 5); err != nil {
			t.Errorf("Query(%q) error: %v", q, err)
		}
	}
}

// ─── List / Update / Delete / Clear ─────────────────────────────────────────

func TestList_Pagination(t *testing.T) {
	s := newTestStore(t)
	for i, id := range []string{"a", "b", "c"} {
		defer memory.SetNow(time.Date(2026, 3, 1, 12, i, 0, 0, time.UTC))()
		mustUpsert(t, s, id, "entry "+id, nil)
	}

	page, total, err := s.List(2, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 || len(page) != 2 || page[0].ID != "c" || page[1].ID != "b" {
		t.Fatalf("first page = %+v total %d", page, total)
	}
	page, _, err = s.List(2, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 1 || page[0].ID != "a" {
		t.Fatalf("second page = %+v", page)
	}
}

func TestUpdate_MergesMetadata(t *testing.T) {
	s := newTestStore(t)
	mustUpsert(t, s, "u", "original", map[string]any{"a": "1", "b": "2"})

	e, err := s.Update("u", nil, map[string]any{"b": nil, "c": "3"})
	if err != nil {
		t.Fatal(err)
	}
	if e.Text != "original" {
		t.Errorf("Text = %q", e.Text)
	}
	if e.Metadata["a"] != "1" || e.Metadata["c"] != "3" {
		t.Errorf("metadata = %v", e.Metadata)
	}
	if _, ok := e.Metadata["b"]; ok {
		t.Errorf("key b should be removed: %v", e.Metadata)
	}

	text := "rewritten"
	e, err = s.Update("u", &text, nil)
	if err != nil {
		t.Fatal(err)
	}
	if e.Text != "rewritten" || e.Metadata["a"] != "1" {
		t.Errorf("after text update: %+v", e)
	}

	empty := " "
	if _, err := s.Update("u", &empty, nil); err == nil {
		t.Error("expected error for empty text")
	}
	if _, err := s.Update("missing", &text, nil); !errors.Is(err, memory.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteAndClear(t *testing.T) {
	s := newTestStore(t)
	mustUpsert(t, s, "a", "alpha", nil)
	mustUpsert(t, s, "b", "beta", nil)
	mustUpsert(t, s, "c", "gamma", nil)

	ok, err := s.Delete("a")
	if err != nil || !ok {
		t.Fatalf("Delete(a) = %v, %v", ok, err)
	}
	ok, err = s.Delete("a")
	if err != nil || ok {
		t.Fatalf("second Delete(a) = %v, %v", ok, err)
	}
	if res, _ := s.Query("alpha", 5); len(res) != 0 {
		t.Errorf("deleted entry still searchable")
	}

	n, err := s.Clear()
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("Clear = %d, want 2", n)
	}
	if c, _ := s.Count(); c != 0 {
		t.Errorf("Count after clear = %d", c)
	}
}

// ─── Detail levels ──────────────────────────────────────────────────────────

func TestSnippet(t *testing.T) {
	long := strings.Repeat("x", 400)
	tests := []struct {
		level string
		want  int
	}{
		{memory.DetailSummary, 83},
		{memory.DetailStandard, 303},
		{"", 303},
		{memory.DetailFull, 400},
	}
	for _, tt := range tests {
		if got := len(memory.Snippet(long, tt.level)); got != tt.want {
			t.Errorf("Snippet(%q) len = %d, want %d", tt.level, got, tt.want)
		}
	}
}

func TestFooters(t *testing.T) {
	if got := memory.NavigationHint(5, 5, ""); got != "" {
		t.Errorf("NavigationHint full page = %q", got)
	}
	if got := memory.NavigationHint(2, 7, "Use offset."); !strings.Contains(got, "Showing 2 of 7. Use offset.") {
		t.Errorf("NavigationHint = %q", got)
	}
	if got := memory.TokenFooter(12345); !strings.Contains(got, "~12,345 tokens") {
		t.Errorf("TokenFooter = %q", got)
	}
	if memory.EstimateTokens("") != 0 || memory.EstimateTokens("ab") != 1 {
		t.Error("EstimateTokens edge cases")
	}
}
