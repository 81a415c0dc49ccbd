package database

import (
	"database/sql"
	"time"
)

const removalColumns = `id, timestamp, run_id, action, path, dir_name, pattern, segment, size, files, error_message`

// GetRecentRemovals returns the N most recent removal events
func (h *HistoryDB) GetRecentRemovals(limit int) ([]RemovalRecord, error) {
	query := `SELECT ` + removalColumns + `
	FROM removals
	ORDER BY timestamp DESC, id DESC
	LIMIT ?
	`

	return h.queryRemovals(query, limit)
}

// GetRemovalsByRun returns every event of one run in insertion order
func (h *HistoryDB) GetRemovalsByRun(runID string) ([]RemovalRecord, error) {
	query := `SELECT ` + removalColumns + `
	FROM removals
	WHERE run_id = ?
	ORDER BY id
	`

	return h.queryRemovals(query, runID)
}

// GetRemovalsByDateRange returns removals within a time range
func (h *HistoryDB) GetRemovalsByDateRange(start, end time.Time) ([]RemovalRecord, error) {
	query := `SELECT ` + removalColumns + `
	FROM removals
	WHERE timestamp BETWEEN ? AND ?
	ORDER BY timestamp DESC, id DESC
	`

	return h.queryRemovals(query, start, end)
}

// GetRemovalsByAction returns removals filtered by action type
func (h *HistoryDB) GetRemovalsByAction(action string) ([]RemovalRecord, error) {
	query := `SELECT ` + removalColumns + `
	FROM removals
	WHERE action = ?
	ORDER BY timestamp DESC, id DESC
	`

	return h.queryRemovals(query, action)
}

// GetRemovalsByPattern returns removals selected by the given pattern
func (h *HistoryDB) GetRemovalsByPattern(pattern string) ([]RemovalRecord, error) {
	query := `SELECT ` + removalColumns + `
	FROM removals
	WHERE pattern = ?
	ORDER BY timestamp DESC, id DESC
	`

	return h.queryRemovals(query, pattern)
}

// GetRemovalsByPath returns removals matching a SQL LIKE path pattern
func (h *HistoryDB) GetRemovalsByPath(pathPattern string) ([]RemovalRecord, error) {
	query := `SELECT ` + removalColumns + `
	FROM removals
	WHERE path LIKE ?
	ORDER BY timestamp DESC, id DESC
	`

	return h.queryRemovals(query, pathPattern)
}

// GetLargestRemovals returns the N largest completed removals by size
func (h *HistoryDB) GetLargestRemovals(limit int) ([]RemovalRecord, error) {
	query := `SELECT ` + removalColumns + `
	FROM removals
	WHERE action = 'DELETE'
	ORDER BY size DESC
	LIMIT ?
	`

	return h.queryRemovals(query, limit)
}

// GetTotalSpaceFreed returns total bytes freed in a time range
func (h *HistoryDB) GetTotalSpaceFreed(start, end time.Time) (int64, error) {
	query := `
	SELECT COALESCE(SUM(size), 0)
	FROM removals
	WHERE action = 'DELETE' AND timestamp BETWEEN ? AND ?
	`

	var total int64
	err := h.db.QueryRow(query, start, end).Scan(&total)
	return total, err
}

// GetRemovalCountByPattern returns completed removals grouped by pattern
func (h *HistoryDB) GetRemovalCountByPattern(since time.Time) (map[string]int, error) {
	return h.groupCount(`
	SELECT pattern, COUNT(*)
	FROM removals
	WHERE action = 'DELETE' AND timestamp >= ?
	GROUP BY pattern
	`, since)
}

// GetRemovalCountByAction returns events grouped by action
func (h *HistoryDB) GetRemovalCountByAction(since time.Time) (map[string]int, error) {
	return h.groupCount(`
	SELECT action, COUNT(*)
	FROM removals
	WHERE timestamp >= ?
	GROUP BY action
	`, since)
}

func (h *HistoryDB) groupCount(query string, args ...interface{}) (map[string]int, error) {
	rows, err := h.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var key sql.NullString
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return nil, err
		}
		counts[key.String] = count
	}

	return counts, rows.Err()
}

// RemovalStats holds aggregated statistics
type RemovalStats struct {
	TotalRemoved    int
	TotalDryRun     int
	TotalErrors     int
	TotalSpaceFreed int64
	ByPattern       map[string]int
	ByAction        map[string]int
	CountRuns       int
	LinesCounted    int64
	StartDate       time.Time
	EndDate         time.Time
}

// GetRemovalStats returns statistics for the last N days
func (h *HistoryDB) GetRemovalStats(days int) (*RemovalStats, error) {
	now := h.now()
	since := now.AddDate(0, 0, -days)

	stats := &RemovalStats{
		StartDate: since,
		EndDate:   now,
	}

	err := h.db.QueryRow(`
		SELECT
			COUNT(CASE WHEN action = 'DELETE' THEN 1 END),
			COUNT(CASE WHEN action = 'DRY_RUN' THEN 1 END),
			COUNT(CASE WHEN action = 'ERROR' THEN 1 END)
		FROM removals
		WHERE timestamp >= ?
	`, since).Scan(&stats.TotalRemoved, &stats.TotalDryRun, &stats.TotalErrors)
	if err != nil {
		return nil, err
	}

	stats.TotalSpaceFreed, err = h.GetTotalSpaceFreed(since, now)
	if err != nil {
		return nil, err
	}

	stats.ByPattern, err = h.GetRemovalCountByPattern(since)
	if err != nil {
		return nil, err
	}

	stats.ByAction, err = h.GetRemovalCountByAction(since)
	if err != nil {
		return nil, err
	}

	err = h.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(total_lines), 0)
		FROM line_counts
		WHERE timestamp >= ?
	`, since).Scan(&stats.CountRuns, &stats.LinesCounted)
	if err != nil {
		return nil, err
	}

	return stats, nil
}

// GetRecentCounts returns the N most recent line-count runs
func (h *HistoryDB) GetRecentCounts(limit int) ([]CountRecord, error) {
	rows, err := h.db.Query(`
	SELECT id, timestamp, run_id, root, extensions, skip_patterns,
	       files, total_lines, read_errors, duration_ms
	FROM line_counts
	ORDER BY timestamp DESC, id DESC
	LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []CountRecord
	for rows.Next() {
		var r CountRecord
		var exts, skips sql.NullString
		err := rows.Scan(
			&r.ID, &r.Timestamp, &r.RunID, &r.Root, &exts, &skips,
			&r.Files, &r.TotalLines, &r.ReadErrors, &r.DurationMs,
		)
		if err != nil {
			return nil, err
		}
		r.Extensions = splitList(exts.String)
		r.SkipPatterns = splitList(skips.String)
		records = append(records, r)
	}

	return records, rows.Err()
}

// DeleteOldRecords removes history older than the given number of days
func (h *HistoryDB) DeleteOldRecords(olderThanDays int) (int64, error) {
	cutoff := h.now().AddDate(0, 0, -olderThanDays)

	var total int64
	for _, table := range []string{"removals", "line_counts"} {
		result, err := h.db.Exec(`DELETE FROM `+table+` WHERE timestamp < ?`, cutoff)
		if err != nil {
			return total, err
		}
		n, err := result.RowsAffected()
		if err != nil {
			return total, err
		}
		total += n
	}

	return total, nil
}

// queryRemovals executes a removal query and scans the results
func (h *HistoryDB) queryRemovals(query string, args ...interface{}) ([]RemovalRecord, error) {
	rows, err := h.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []RemovalRecord
	for rows.Next() {
		var r RemovalRecord
		var dirName, pattern, segment, errMsg sql.NullString

		err := rows.Scan(
			&r.ID, &r.Timestamp, &r.RunID, &r.Action, &r.Path, &dirName,
			&pattern, &segment, &r.Size, &r.Files, &errMsg,
		)
		if err != nil {
			return nil, err
		}

		r.DirName = dirName.String
		r.Pattern = pattern.String
		r.Segment = segment.String
		r.ErrorMessage = errMsg.String

		records = append(records, r)
	}

	return records, rows.Err()
}
