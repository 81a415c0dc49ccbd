package database

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"file-assistant/internal/walker"
)

func openTestDB(t *testing.T, name string) *HistoryDB {
	t.Helper()
	db, err := NewHistoryDB(filepath.Join(t.TempDir(), name))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close database: %v", err)
		}
	})
	return db
}

func removed(path, pattern string, size int64, action string) walker.RemovedDir {
	return walker.RemovedDir{
		Path:    path,
		Pattern: pattern,
		Segment: filepath.Base(path),
		Size:    size,
		Files:   1,
		Action:  action,
	}
}

// TestDatabaseCreation verifies database file creation and initialization
func TestDatabaseCreation(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "history.db")

	db, err := NewHistoryDB(dbPath)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Errorf("Database file not created at %s", dbPath)
	}
}

// TestWALModeEnabled verifies that WAL mode is properly configured
func TestWALModeEnabled(t *testing.T) {
	db := openTestDB(t, "wal.db")

	var journalMode string
	if err := db.db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("Failed to query journal mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("Expected journal_mode=wal, got %s", journalMode)
	}
}

// TestSchemaCreation verifies all tables and indexes are created
func TestSchemaCreation(t *testing.T) {
	db := openTestDB(t, "schema.db")

	for _, table := range []string{"removals", "line_counts", "schema_version"} {
		var name string
		err := db.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("%s table not found: %v", table, err)
		}
	}

	var version int
	if err := db.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		t.Errorf("Failed to read schema version: %v", err)
	}
	if version != 1 {
		t.Errorf("Expected schema version 1, got %d", version)
	}

	expectedIndexes := []string{
		"idx_removals_timestamp",
		"idx_removals_run_id",
		"idx_removals_action",
		"idx_removals_path",
		"idx_removals_pattern",
		"idx_removals_size",
		"idx_line_counts_timestamp",
		"idx_line_counts_root",
	}
	for _, indexName := range expectedIndexes {
		var name string
		err := db.db.QueryRow("SELECT name FROM sqlite_master WHERE type='index' AND name=?", indexName).Scan(&name)
		if err != nil {
			t.Errorf("Index %s not found: %v", indexName, err)
		}
	}
}

// TestSchemaIdempotent verifies reopening an existing database keeps its rows
func TestSchemaIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "reopen.db")

	db, err := NewHistoryDB(dbPath)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	if err := db.RecordRemoval("run-1", removed("/w/test", "test", 10, walker.ActionDelete), ""); err != nil {
		t.Fatalf("Failed to record removal: %v", err)
	}
	db.Close()

	db, err = NewHistoryDB(dbPath)
	if err != nil {
		t.Fatalf("Failed to reopen database: %v", err)
	}
	defer db.Close()

	records, err := db.GetRecentRemovals(10)
	if err != nil {
		t.Fatalf("Failed to query: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("Expected 1 record after reopen, got %d", len(records))
	}
}

// TestRecordRemoval verifies every column round-trips
func TestRecordRemoval(t *testing.T) {
	db := openTestDB(t, "record.db")

	dir := walker.RemovedDir{
		Path:    "/work/keep/test_data",
		Pattern: "test",
		Segment: "test_data",
		Size:    4096,
		Files:   3,
		Action:  walker.ActionDelete,
	}
	if err := db.RecordRemoval("run-42", dir, ""); err != nil {
		t.Fatalf("Failed to record removal: %v", err)
	}

	records, err := db.GetRecentRemovals(1)
	if err != nil {
		t.Fatalf("Failed to retrieve removals: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}

	r := records[0]
	if r.RunID != "run-42" {
		t.Errorf("Expected run id run-42, got %s", r.RunID)
	}
	if r.Action != walker.ActionDelete {
		t.Errorf("Expected action DELETE, got %s", r.Action)
	}
	if r.Path != dir.Path {
		t.Errorf("Expected path %s, got %s", dir.Path, r.Path)
	}
	if r.DirName != "test_data" {
		t.Errorf("Expected dir name test_data, got %s", r.DirName)
	}
	if r.Pattern != "test" || r.Segment != "test_data" {
		t.Errorf("Expected pattern test / segment test_data, got %s / %s", r.Pattern, r.Segment)
	}
	if r.Size != 4096 || r.Files != 3 {
		t.Errorf("Expected size 4096 files 3, got %d %d", r.Size, r.Files)
	}
	if r.ErrorMessage != "" {
		t.Errorf("Expected empty error message, got %q", r.ErrorMessage)
	}
	if r.Timestamp.IsZero() {
		t.Error("Timestamp should be set")
	}
}

// TestRecordCount verifies line-count runs are stored with their lists
func TestRecordCount(t *testing.T) {
	db := openTestDB(t, "counts.db")

	report := &walker.CountReport{
		RunID:        "count-1",
		Root:         "/work",
		Extensions:   []string{".py", ".js"},
		SkipPatterns: []string{"venv", "__pycache__"},
		Files:        []walker.FileCount{{Path: "/work/a.py", Lines: 3}, {Path: "/work/b.js", Lines: 2}},
		TotalLines:   5,
		Errors:       []*walker.ReadError{{Path: "/work/c.py", Err: walker.ErrNotUTF8}},
		Duration:     1500 * time.Millisecond,
	}
	if err := db.RecordCount(report); err != nil {
		t.Fatalf("Failed to record count: %v", err)
	}

	empty := &walker.CountReport{RunID: "count-2", Root: "/missing"}
	if err := db.RecordCount(empty); err != nil {
		t.Fatalf("Failed to record empty count: %v", err)
	}

	records, err := db.GetRecentCounts(10)
	if err != nil {
		t.Fatalf("Failed to query counts: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 count records, got %d", len(records))
	}

	// Most recent first
	if records[0].RunID != "count-2" {
		t.Errorf("Expected most recent run first, got %s", records[0].RunID)
	}
	if records[0].Extensions != nil {
		t.Errorf("Expected no extensions, got %v", records[0].Extensions)
	}

	r := records[1]
	if r.Root != "/work" || r.Files != 2 || r.TotalLines != 5 || r.ReadErrors != 1 {
		t.Errorf("Unexpected count record: %+v", r)
	}
	if r.DurationMs != 1500 {
		t.Errorf("Expected duration 1500ms, got %d", r.DurationMs)
	}
	if len(r.Extensions) != 2 || r.Extensions[0] != ".py" || r.Extensions[1] != ".js" {
		t.Errorf("Unexpected extensions: %v", r.Extensions)
	}
	if len(r.SkipPatterns) != 2 || r.SkipPatterns[1] != "__pycache__" {
		t.Errorf("Unexpected skip patterns: %v", r.SkipPatterns)
	}
}

// TestQueryMethods verifies the filtered queries
func TestQueryMethods(t *testing.T) {
	db := openTestDB(t, "query.db")

	rows := []struct {
		dir    walker.RemovedDir
		errMsg string
	}{
		{removed("/w/test", "test", 100, walker.ActionDelete), ""},
		{removed("/w/a/test_data", "test", 5000, walker.ActionDelete), ""},
		{removed("/w/trash", "trash", 300, walker.ActionDelete), ""},
		{removed("/w/b/trash", "trash", 0, walker.ActionDryRun), ""},
		{removed("/w/locked/test", "test", 0, walker.ActionError), "permission denied"},
	}
	for _, r := range rows {
		if err := db.RecordRemoval("run-q", r.dir, r.errMsg); err != nil {
			t.Fatalf("Failed to insert: %v", err)
		}
	}

	t.Run("ByAction", func(t *testing.T) {
		records, err := db.GetRemovalsByAction(walker.ActionError)
		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		if len(records) != 1 {
			t.Fatalf("Expected 1 ERROR record, got %d", len(records))
		}
		if records[0].ErrorMessage != "permission denied" {
			t.Errorf("Expected error message, got %q", records[0].ErrorMessage)
		}
	})

	t.Run("ByPattern", func(t *testing.T) {
		records, err := db.GetRemovalsByPattern("trash")
		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		if len(records) != 2 {
			t.Errorf("Expected 2 trash records, got %d", len(records))
		}
	})

	t.Run("ByPath", func(t *testing.T) {
		records, err := db.GetRemovalsByPath("/w/a/%")
		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		if len(records) != 1 || records[0].Path != "/w/a/test_data" {
			t.Errorf("Unexpected path query result: %+v", records)
		}
	})

	t.Run("ByRun", func(t *testing.T) {
		records, err := db.GetRemovalsByRun("run-q")
		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		if len(records) != len(rows) {
			t.Fatalf("Expected %d records, got %d", len(rows), len(records))
		}
		for i := range rows {
			if records[i].Path != rows[i].dir.Path {
				t.Errorf("Record %d: expected %s, got %s", i, rows[i].dir.Path, records[i].Path)
			}
		}
	})

	t.Run("Largest", func(t *testing.T) {
		records, err := db.GetLargestRemovals(2)
		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		if len(records) != 2 {
			t.Fatalf("Expected 2 records, got %d", len(records))
		}
		if records[0].Size != 5000 || records[1].Size != 300 {
			t.Errorf("Expected sizes 5000, 300; got %d, %d", records[0].Size, records[1].Size)
		}
	})

	t.Run("Stats", func(t *testing.T) {
		stats, err := db.GetRemovalStats(7)
		if err != nil {
			t.Fatalf("Stats failed: %v", err)
		}
		if stats.TotalRemoved != 3 || stats.TotalDryRun != 1 || stats.TotalErrors != 1 {
			t.Errorf("Unexpected action totals: %+v", stats)
		}
		if stats.TotalSpaceFreed != 5400 {
			t.Errorf("Expected 5400 bytes freed, got %d", stats.TotalSpaceFreed)
		}
		if stats.ByPattern["test"] != 2 || stats.ByPattern["trash"] != 1 {
			t.Errorf("Unexpected by-pattern counts: %v", stats.ByPattern)
		}
		if stats.ByAction[walker.ActionDryRun] != 1 {
			t.Errorf("Unexpected by-action counts: %v", stats.ByAction)
		}
	})
}

// TestDeleteOldRecords verifies pruning by age across both tables
func TestDeleteOldRecords(t *testing.T) {
	db := openTestDB(t, "prune.db")

	now := time.Now()
	db.now = func() time.Time { return now.AddDate(0, 0, -40) }
	if err := db.RecordRemoval("old", removed("/w/old", "old", 1, walker.ActionDelete), ""); err != nil {
		t.Fatalf("Failed to insert: %v", err)
	}
	if err := db.RecordCount(&walker.CountReport{RunID: "old", Root: "/w"}); err != nil {
		t.Fatalf("Failed to insert: %v", err)
	}

	db.now = func() time.Time { return now }
	if err := db.RecordRemoval("new", removed("/w/new", "new", 1, walker.ActionDelete), ""); err != nil {
		t.Fatalf("Failed to insert: %v", err)
	}

	deleted, err := db.DeleteOldRecords(30)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("Expected 2 pruned rows, got %d", deleted)
	}

	records, err := db.GetRecentRemovals(10)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(records) != 1 || records[0].RunID != "new" {
		t.Errorf("Expected only the new record to survive, got %+v", records)
	}
}

// TestConcurrentReadWrite verifies concurrent read and write operations
func TestConcurrentReadWrite(t *testing.T) {
	db := openTestDB(t, "concurrent.db")

	var wg sync.WaitGroup
	errors := make(chan error, 20)

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			dir := removed(fmt.Sprintf("/w/test%d", i), "test", 1024, walker.ActionDelete)
			if err := db.RecordRemoval("run-c", dir, ""); err != nil {
				errors <- fmt.Errorf("writer error: %v", err)
				return
			}
		}
	}()

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				if _, err := db.GetRecentRemovals(10); err != nil {
					errors <- fmt.Errorf("reader %d: %v", id, err)
					return
				}
			}
		}(i)
	}

	wg.Wait()
	close(errors)

	for err := range errors {
		t.Errorf("Concurrent read/write error: %v", err)
	}
}

// TestDatabaseStats verifies statistics gathering
func TestDatabaseStats(t *testing.T) {
	db := openTestDB(t, "stats.db")

	for i := 0; i < 3; i++ {
		if err := db.RecordRemoval("run-s", removed(fmt.Sprintf("/w/t%d", i), "t", 1, walker.ActionDelete), ""); err != nil {
			t.Fatalf("Failed to insert: %v", err)
		}
	}
	if err := db.RecordCount(&walker.CountReport{RunID: "run-s", Root: "/w"}); err != nil {
		t.Fatalf("Failed to insert: %v", err)
	}

	stats, err := db.GetDatabaseStats()
	if err != nil {
		t.Fatalf("Failed to get stats: %v", err)
	}

	if stats["removal_records"] != int64(3) {
		t.Errorf("Expected 3 removal records, got %v", stats["removal_records"])
	}
	if stats["total_records"] != int64(4) {
		t.Errorf("Expected 4 records, got %v", stats["total_records"])
	}
	if size, ok := stats["database_size_bytes"].(int64); !ok || size <= 0 {
		t.Errorf("Expected positive database size, got %v", stats["database_size_bytes"])
	}
	if _, ok := stats["oldest_record"]; !ok {
		t.Error("Expected oldest_record to be parsed")
	}
	if _, ok := stats["newest_record"]; !ok {
		t.Error("Expected newest_record to be parsed")
	}
}

// TestVacuum verifies VACUUM runs on a populated database
func TestVacuum(t *testing.T) {
	db := openTestDB(t, "vacuum.db")

	for i := 0; i < 20; i++ {
		if err := db.RecordRemoval("run-v", removed(fmt.Sprintf("/w/v%d", i), "v", 1, walker.ActionDelete), ""); err != nil {
			t.Fatalf("Failed to insert: %v", err)
		}
	}
	if _, err := db.DeleteOldRecords(-1); err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if err := db.Vacuum(); err != nil {
		t.Errorf("Vacuum failed: %v", err)
	}
}

// TestDatabaseErrorHandling verifies error conditions are handled properly
func TestDatabaseErrorHandling(t *testing.T) {
	_, err := NewHistoryDB("/dev/null/invalid/path/db.sqlite")
	if err == nil {
		t.Error("Expected error for invalid database path")
	}
}

// TestRecorderInterface verifies HistoryDB satisfies the walker's history sink
func TestRecorderInterface(t *testing.T) {
	var _ walker.Recorder = (*HistoryDB)(nil)
}
