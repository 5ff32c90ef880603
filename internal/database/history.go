package database

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/sha3"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/hathi/internal/model"
)

// FileName is the database file created inside the data directory.
const FileName = "history.db"

// ErrRunNotFound is returned when finishing a run that was never started.
var ErrRunNotFound = errors.New("run not found")

// HistoryDB stores scan runs and accepted credentials.
type HistoryDB struct {
	db     *sql.DB
	dbPath string
	now    func() time.Time
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool

	// Clock returns the current time. Nil means time.Now.
	Clock func() time.Time
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the history database in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (run a scan with --save first)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file; mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	hdb := &HistoryDB{db: db, dbPath: dbPath, now: now}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	// The file holds cleartext credentials.
	if err := os.Chmod(dbPath, 0600); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to restrict database permissions: %w", err)
	}

	return hdb, nil
}

// Path returns the database file path.
func (h *HistoryDB) Path() string {
	return h.dbPath
}

// Close closes the database connection.
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

func (h *HistoryDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		hosts INTEGER NOT NULL DEFAULT 0,
		reachable INTEGER NOT NULL DEFAULT 0,
		matches INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	-- One row per distinct credential; repeated finds bump seen_count.
	CREATE TABLE IF NOT EXISTS matches (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		fingerprint TEXT NOT NULL UNIQUE,
		host TEXT NOT NULL,
		type TEXT NOT NULL,
		database_name TEXT NOT NULL,
		username TEXT NOT NULL,
		password TEXT NOT NULL,
		run_id TEXT NOT NULL REFERENCES runs(id),
		first_seen TEXT NOT NULL,
		last_seen TEXT NOT NULL,
		seen_count INTEGER NOT NULL DEFAULT 1
	);

	CREATE INDEX IF NOT EXISTS idx_matches_host ON matches(host);
	CREATE INDEX IF NOT EXISTS idx_matches_last_seen ON matches(last_seen);
	`

	_, err := h.db.ExecContext(context.Background(), schema)
	return err
}

// Run describes one recorded scan.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Hosts      int
	Reachable  int
	Matches    int
}

// MatchRecord is a stored credential with its sighting history.
type MatchRecord struct {
	model.Match

	Fingerprint string
	RunID       string
	FirstSeen   time.Time
	LastSeen    time.Time
	SeenCount   int
}

// Fingerprint returns the hex SHA3-256 digest identifying a credential on a
// service. The same credential on the same host, type and database always
// yields the same fingerprint.
func Fingerprint(m model.Match) string {
	h := sha3.New256()
	for _, part := range []string{m.Host, m.Type.String(), m.Database, m.Username, m.Password} {
		_, _ = h.Write([]byte(part))
		_, _ = h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// StartRun records the start of a scan over hosts targets and returns its ID.
func (h *HistoryDB) StartRun(ctx context.Context, hosts int) (string, error) {
	id := uuid.New().String()
	_, err := h.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, hosts) VALUES (?, ?, ?)`,
		id, formatTimestamp(h.now()), hosts,
	)
	if err != nil {
		return "", fmt.Errorf("failed to start run: %w", err)
	}
	return id, nil
}

// FinishRun records the totals of a finished run.
func (h *HistoryDB) FinishRun(ctx context.Context, runID string, reachable, matches int) error {
	result, err := h.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, reachable = ?, matches = ? WHERE id = ?`,
		formatTimestamp(h.now()), reachable, matches, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

// SaveMatch stores a credential found by runID. A credential seen before is
// updated in place rather than duplicated.
func (h *HistoryDB) SaveMatch(ctx context.Context, runID string, m model.Match) error {
	ts := formatTimestamp(h.now())

	query := `
	INSERT INTO matches (fingerprint, host, type, database_name, username, password, run_id, first_seen, last_seen)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(fingerprint) DO UPDATE SET
		run_id = excluded.run_id,
		last_seen = excluded.last_seen,
		seen_count = matches.seen_count + 1
	`

	_, err := h.db.ExecContext(ctx, query,
		Fingerprint(m),
		m.Host,
		m.Type.String(),
		m.Database,
		m.Username,
		m.Password,
		runID,
		ts,
		ts,
	)
	if err != nil {
		return fmt.Errorf("failed to save match: %w", err)
	}
	return nil
}

// ListMatches returns stored credentials, most recently seen first.
// A limit of zero or less returns everything.
func (h *HistoryDB) ListMatches(ctx context.Context, limit int) ([]MatchRecord, error) {
	query := `
	SELECT fingerprint, host, type, database_name, username, password, run_id, first_seen, last_seen, seen_count
	FROM matches
	ORDER BY last_seen DESC, id DESC
	LIMIT ?
	`

	rows, err := h.db.QueryContext(ctx, query, sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer rows.Close()

	var records []MatchRecord
	for rows.Next() {
		var (
			rec                 MatchRecord
			typeName            string
			firstSeen, lastSeen string
		)
		if err := rows.Scan(
			&rec.Fingerprint,
			&rec.Host,
			&typeName,
			&rec.Database,
			&rec.Username,
			&rec.Password,
			&rec.RunID,
			&firstSeen,
			&lastSeen,
			&rec.SeenCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}

		rec.Type, err = model.ParseServiceType(typeName)
		if err != nil {
			return nil, fmt.Errorf("failed to parse stored match: %w", err)
		}
		rec.FirstSeen = parseTimestamp(firstSeen)
		rec.LastSeen = parseTimestamp(lastSeen)
		records = append(records, rec)
	}

	return records, rows.Err()
}

// ListRuns returns recorded runs, newest first.
// A limit of zero or less returns everything.
func (h *HistoryDB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `
	SELECT id, started_at, COALESCE(finished_at, ''), hosts, reachable, matches
	FROM runs
	ORDER BY started_at DESC
	LIMIT ?
	`

	rows, err := h.db.QueryContext(ctx, query, sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run                 Run
			started, finishedAt string
		)
		if err := rows.Scan(&run.ID, &started, &finishedAt, &run.Hosts, &run.Reachable, &run.Matches); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.StartedAt = parseTimestamp(started)
		run.FinishedAt = parseTimestamp(finishedAt)
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// sqlLimit maps "no limit" to SQLite's -1.
func sqlLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}

// timestampLayout is fixed-width so stored values sort lexically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// timestampFormats lists the layouts accepted when reading timestamps back.
var timestampFormats = []string{
	timestampLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05", // SQLite CURRENT_TIMESTAMP
}

// parseTimestamp returns the zero time when no layout matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
