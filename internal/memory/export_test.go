package memory

import (
	"database/sql"
	"time"
)

// DB exposes the internal *sql.DB for test helpers in memory_test.
// This file only compiles during `go test`.
func (s *Store) DB() *sql.DB {
	return s.db
}

// SetOpenDB swaps the database opener and returns a restore func.
func SetOpenDB(fn func(driver, dsn string) (*sql.DB, error)) func() {
	prev := openDB
	openDB = fn
	return func() { openDB = prev }
}

// SetNow freezes the clock and returns a restore func.
func SetNow(t time.Time) func() {
	prev := timeNow
	timeNow = func() time.Time { return t }
	return func() { timeNow = prev }
}
