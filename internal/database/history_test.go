package database

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/hathi/internal/model"
)

// fakeClock advances one second per call.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *HistoryDB {
	t.Helper()

	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	opts := DefaultOptions()
	opts.Clock = clock.Now

	db, err := Open(t.TempDir(), opts)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testMatch(host, username string) model.Match {
	return model.Match{
		Host:     host,
		Type:     model.ServiceTypePostgres,
		Database: "postgres",
		Username: username,
		Password: "secret",
	}
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		info, err := os.Stat(filepath.Join(dbDir, FileName))
		if err != nil {
			t.Fatalf("database file was not created: %v", err)
		}
		if perm := info.Mode().Perm(); perm != 0600 {
			t.Errorf("expected 0600 permissions, got %o", perm)
		}
		if db.Path() != filepath.Join(dbDir, FileName) {
			t.Errorf("unexpected path %q", db.Path())
		}
	})

	t.Run("CreateIfNotExists=false returns error when database does not exist", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "missing")
		_, err := Open(dbDir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err == nil {
			t.Fatal("expected error")
		}
		if !strings.Contains(err.Error(), "database not found") {
			t.Errorf("unexpected error %q", err)
		}
		if _, statErr := os.Stat(dbDir); !os.IsNotExist(statErr) {
			t.Error("database directory should not have been created")
		}
	})

	t.Run("CreateIfNotExists=false opens existing database", func(t *testing.T) {
		t.Parallel()

		dbDir := t.TempDir()
		db1, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		runID, err := db1.StartRun(t.Context(), 1)
		if err != nil {
			t.Fatalf("failed to start run: %v", err)
		}
		if err := db1.SaveMatch(t.Context(), runID, testMatch("10.0.0.1", "postgres")); err != nil {
			t.Fatalf("failed to save match: %v", err)
		}
		_ = db1.Close()

		db2, err := Open(dbDir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		defer db2.Close()

		records, err := db2.ListMatches(t.Context(), 0)
		if err != nil {
			t.Fatalf("failed to list matches: %v", err)
		}
		if len(records) != 1 {
			t.Errorf("expected data to persist, got %d records", len(records))
		}
	})
}

func TestFingerprint(t *testing.T) {
	t.Parallel()

	a := testMatch("10.0.0.1", "postgres")
	if Fingerprint(a) != Fingerprint(a) {
		t.Error("fingerprint must be deterministic")
	}
	if len(Fingerprint(a)) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(Fingerprint(a)))
	}

	b := a
	b.Password = "other"
	if Fingerprint(a) == Fingerprint(b) {
		t.Error("different passwords must differ")
	}

	// Field boundaries are unambiguous.
	c := model.Match{Host: "ab", Username: "c", Type: a.Type}
	d := model.Match{Host: "a", Username: "bc", Type: a.Type}
	if Fingerprint(c) == Fingerprint(d) {
		t.Error("field boundaries must be part of the fingerprint")
	}
}

func TestSaveMatch(t *testing.T) {
	t.Parallel()

	t.Run("deduplicates repeated credentials", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := t.Context()

		first, err := db.StartRun(ctx, 1)
		if err != nil {
			t.Fatalf("failed to start run: %v", err)
		}
		second, err := db.StartRun(ctx, 1)
		if err != nil {
			t.Fatalf("failed to start run: %v", err)
		}

		m := testMatch("10.0.0.1", "postgres")
		if err := db.SaveMatch(ctx, first, m); err != nil {
			t.Fatalf("failed to save: %v", err)
		}
		if err := db.SaveMatch(ctx, second, m); err != nil {
			t.Fatalf("failed to save again: %v", err)
		}

		records, err := db.ListMatches(ctx, 0)
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(records) != 1 {
			t.Fatalf("expected 1 record, got %d", len(records))
		}
		rec := records[0]
		if rec.SeenCount != 2 {
			t.Errorf("expected seen count 2, got %d", rec.SeenCount)
		}
		if rec.RunID != second {
			t.Errorf("expected latest run %s, got %s", second, rec.RunID)
		}
		if !rec.LastSeen.After(rec.FirstSeen) {
			t.Errorf("expected last seen %v after first seen %v", rec.LastSeen, rec.FirstSeen)
		}
		if rec.Match.Host != m.Host || rec.Type != m.Type || rec.Password != m.Password {
			t.Errorf("unexpected record %+v", rec.Match)
		}
	})

	t.Run("lists newest first with limit", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := t.Context()

		runID, err := db.StartRun(ctx, 3)
		if err != nil {
			t.Fatalf("failed to start run: %v", err)
		}
		for _, host := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
			if err := db.SaveMatch(ctx, runID, testMatch(host, "postgres")); err != nil {
				t.Fatalf("failed to save: %v", err)
			}
		}

		records, err := db.ListMatches(ctx, 2)
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(records) != 2 {
			t.Fatalf("expected 2 records, got %d", len(records))
		}
		if records[0].Host != "10.0.0.3" || records[1].Host != "10.0.0.2" {
			t.Errorf("expected newest first, got %s then %s", records[0].Host, records[1].Host)
		}
	})
}

func TestRuns(t *testing.T) {
	t.Parallel()

	t.Run("records totals", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := t.Context()

		older, err := db.StartRun(ctx, 4)
		if err != nil {
			t.Fatalf("failed to start run: %v", err)
		}
		newer, err := db.StartRun(ctx, 8)
		if err != nil {
			t.Fatalf("failed to start run: %v", err)
		}
		if err := db.FinishRun(ctx, older, 3, 1); err != nil {
			t.Fatalf("failed to finish run: %v", err)
		}

		runs, err := db.ListRuns(ctx, 0)
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(runs) != 2 {
			t.Fatalf("expected 2 runs, got %d", len(runs))
		}
		if runs[0].ID != newer || runs[1].ID != older {
			t.Error("expected newest run first")
		}
		if !runs[0].FinishedAt.IsZero() {
			t.Error("unfinished run must have zero FinishedAt")
		}
		done := runs[1]
		if done.Hosts != 4 || done.Reachable != 3 || done.Matches != 1 {
			t.Errorf("unexpected totals %+v", done)
		}
		if !done.FinishedAt.After(done.StartedAt) {
			t.Errorf("expected finish %v after start %v", done.FinishedAt, done.StartedAt)
		}
	})

	t.Run("finishing an unknown run fails", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		err := db.FinishRun(t.Context(), "no-such-run", 0, 0)
		if !errors.Is(err, ErrRunNotFound) {
			t.Errorf("expected ErrRunNotFound, got %v", err)
		}
	})
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	want := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tests := []string{
		formatTimestamp(want),
		"2026-01-02T03:04:05Z",
		"2026-01-02 03:04:05",
	}
	for _, in := range tests {
		t.Run(in, func(t *testing.T) {
			t.Parallel()
			if got := parseTimestamp(in); !got.Equal(want) {
				t.Errorf("parseTimestamp(%q) = %v, want %v", in, got, want)
			}
		})
	}

	if !parseTimestamp("garbage").IsZero() {
		t.Error("expected zero time for unparseable input")
	}
}
