package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"file-assistant/internal/walker"
)

// HistoryDB manages the SQLite database for removal and line-count history
type HistoryDB struct {
	db  *sql.DB
	now func() time.Time
}

// RemovalRecord represents a single directory removal event
type RemovalRecord struct {
	ID           int64
	Timestamp    time.Time
	RunID        string
	Action       string // DELETE, DRY_RUN or ERROR
	Path         string
	DirName      string
	Pattern      string
	Segment      string
	Size         int64
	Files        int64
	ErrorMessage string
}

// CountRecord represents one line-count run
type CountRecord struct {
	ID           int64
	Timestamp    time.Time
	RunID        string
	Root         string
	Extensions   []string
	SkipPatterns []string
	Files        int
	TotalLines   int
	ReadErrors   int
	DurationMs   int64
}

// NewHistoryDB creates a new database connection and initializes schema
func NewHistoryDB(dbPath string) (*HistoryDB, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	// _loc=auto enables automatic DATETIME parsing
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?_loc=auto")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err != nil {
			db.Close()
		}
	}()

	// A real statement (not Ping) makes sqlite create the file
	if _, err = db.Exec("SELECT 1"); err != nil {
		return nil, fmt.Errorf("failed to initialize database (check permissions on %s): %w", dbPath, err)
	}

	// WAL lets the query tool read while a run is writing
	if _, err = db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if _, err = db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}

	h := &HistoryDB{db: db, now: time.Now}
	if err = h.initSchema(); err != nil {
		return nil, err
	}

	return h, nil
}

// initSchema creates tables and indexes if they don't exist
func (h *HistoryDB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS removals (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		run_id TEXT NOT NULL,
		action TEXT NOT NULL,
		path TEXT NOT NULL,
		dir_name TEXT,
		pattern TEXT,
		segment TEXT,
		size INTEGER NOT NULL DEFAULT 0,
		files INTEGER NOT NULL DEFAULT 0,
		error_message TEXT,

		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_removals_timestamp ON removals(timestamp);
	CREATE INDEX IF NOT EXISTS idx_removals_run_id ON removals(run_id);
	CREATE INDEX IF NOT EXISTS idx_removals_action ON removals(action);
	CREATE INDEX IF NOT EXISTS idx_removals_path ON removals(path);
	CREATE INDEX IF NOT EXISTS idx_removals_pattern ON removals(pattern);
	CREATE INDEX IF NOT EXISTS idx_removals_size ON removals(size);

	CREATE TABLE IF NOT EXISTS line_counts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		run_id TEXT NOT NULL,
		root TEXT NOT NULL,
		extensions TEXT,
		skip_patterns TEXT,
		files INTEGER NOT NULL,
		total_lines INTEGER NOT NULL,
		read_errors INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,

		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_line_counts_timestamp ON line_counts(timestamp);
	CREATE INDEX IF NOT EXISTS idx_line_counts_root ON line_counts(root);

	-- Metadata table for schema versioning
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`

	_, err := h.db.Exec(schema)
	return err
}

// RecordRemoval inserts a removal event into the database
func (h *HistoryDB) RecordRemoval(runID string, dir walker.RemovedDir, errMsg string) error {
	query := `
	INSERT INTO removals (
		timestamp, run_id, action, path, dir_name, pattern, segment,
		size, files, error_message
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := h.db.Exec(
		query,
		h.now(),
		runID,
		dir.Action,
		dir.Path,
		filepath.Base(dir.Path),
		dir.Pattern,
		dir.Segment,
		dir.Size,
		dir.Files,
		errMsg,
	)
	return err
}

// RecordCount inserts the summary of a line-count run
func (h *HistoryDB) RecordCount(report *walker.CountReport) error {
	query := `
	INSERT INTO line_counts (
		timestamp, run_id, root, extensions, skip_patterns,
		files, total_lines, read_errors, duration_ms
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := h.db.Exec(
		query,
		h.now(),
		report.RunID,
		report.Root,
		joinList(report.Extensions),
		joinList(report.SkipPatterns),
		len(report.Files),
		report.TotalLines,
		len(report.Errors),
		report.Duration.Milliseconds(),
	)
	return err
}

// Lists are stored comma-separated; entries never contain commas in practice
func joinList(items []string) string {
	return strings.Join(items, ",")
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// Close closes the database connection
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

// Vacuum optimizes the database (run periodically)
func (h *HistoryDB) Vacuum() error {
	_, err := h.db.Exec("VACUUM")
	return err
}

// GetDatabaseStats returns database statistics
func (h *HistoryDB) GetDatabaseStats() (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	var removals, counts int64
	if err := h.db.QueryRow("SELECT COUNT(*) FROM removals").Scan(&removals); err != nil {
		return nil, err
	}
	if err := h.db.QueryRow("SELECT COUNT(*) FROM line_counts").Scan(&counts); err != nil {
		return nil, err
	}
	stats["removal_records"] = removals
	stats["count_records"] = counts
	stats["total_records"] = removals + counts

	var pageCount, pageSize int64
	if err := h.db.QueryRow("PRAGMA page_count").Scan(&pageCount); err != nil {
		return nil, err
	}
	if err := h.db.QueryRow("PRAGMA page_size").Scan(&pageSize); err != nil {
		return nil, err
	}
	stats["database_size_bytes"] = pageCount * pageSize

	var oldest, newest sql.NullString
	err := h.db.QueryRow(`
		SELECT MIN(ts), MAX(ts) FROM (
			SELECT timestamp AS ts FROM removals
			UNION ALL
			SELECT timestamp AS ts FROM line_counts
		)`).Scan(&oldest, &newest)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	if t, ok := parseTimestamp(oldest); ok {
		stats["oldest_record"] = t
	}
	if t, ok := parseTimestamp(newest); ok {
		stats["newest_record"] = t
	}

	return stats, nil
}

// Aggregates come back as text, so _loc=auto parsing does not apply
var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
}

func parseTimestamp(s sql.NullString) (time.Time, bool) {
	if !s.Valid || s.String == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s.String); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
