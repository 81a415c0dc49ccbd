package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"file-assistant/internal/database"
	"file-assistant/internal/exitcodes"
	"file-assistant/internal/logging"
)

const defaultDBPath = "/var/lib/file-assistant/history.db"

var errNoQuery = errors.New("no query selected")

type options struct {
	recent      int
	stats       bool
	action      string
	pattern     string
	run         string
	pathPattern string
	largest     int
	counts      int
	prune       int
	dbStats     bool
	days        int
}

// query renders history records to out, as tables or JSON
type query struct {
	db   *database.HistoryDB
	out  io.Writer
	json bool
}

func main() {
	var opts options
	dbPath := flag.String("db", defaultDBPath, "Path to history database")
	flag.IntVar(&opts.recent, "recent", 0, "Show N most recent removals")
	flag.BoolVar(&opts.stats, "stats", false, "Show removal statistics")
	flag.StringVar(&opts.action, "action", "", "Filter by action (DELETE, DRY_RUN, ERROR)")
	flag.StringVar(&opts.pattern, "pattern", "", "Filter by the pattern that selected the directory")
	flag.StringVar(&opts.run, "run", "", "Show every event of one run id")
	flag.StringVar(&opts.pathPattern, "path", "", "Filter by path pattern (SQL LIKE syntax)")
	flag.IntVar(&opts.largest, "largest", 0, "Show N largest removals")
	flag.IntVar(&opts.counts, "counts", 0, "Show N most recent line-count runs")
	flag.IntVar(&opts.prune, "prune", 0, "Delete history older than N days, then vacuum")
	flag.BoolVar(&opts.dbStats, "db-stats", false, "Show database size and record counts")
	flag.IntVar(&opts.days, "days", 30, "Number of days for statistics")
	jsonOutput := flag.Bool("json", false, "Output in JSON format")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	logger, err := logging.New(logging.Options{Level: *logLevel})
	if err != nil {
		logger.Warn().Err(err).Msg("Log file unavailable, logging to console only")
	}

	if env := os.Getenv("FILE_ASSISTANT_DB"); env != "" && !flagSet("db") {
		*dbPath = env
	}

	db, err := database.NewHistoryDB(*dbPath)
	if err != nil {
		logger.Error().Err(err).Str("path", *dbPath).Msg("Failed to open database")
		os.Exit(exitcodes.RuntimeError)
	}

	q := &query{db: db, out: os.Stdout, json: *jsonOutput}
	err = q.execute(opts)

	if cerr := db.Close(); cerr != nil {
		logger.Error().Err(cerr).Msg("Failed to close database")
	}

	switch {
	case errors.Is(err, errNoQuery):
		usage()
		os.Exit(exitcodes.InvalidConfig)
	case err != nil:
		logger.Error().Err(err).Msg("Query failed")
		os.Exit(exitcodes.RuntimeError)
	}
}

func usage() {
	flag.Usage()
	fmt.Println("\nExamples:")
	fmt.Println("  file-assistant-query --recent 10          # Show 10 most recent removals")
	fmt.Println("  file-assistant-query --stats --days 7     # Statistics for the last week")
	fmt.Println("  file-assistant-query --action ERROR       # Show failed removals")
	fmt.Println("  file-assistant-query --pattern test       # Removals selected by 'test'")
	fmt.Println("  file-assistant-query --path '/srv/%'      # Removals below /srv")
	fmt.Println("  file-assistant-query --counts 5           # Last 5 line counts")
	fmt.Println("  file-assistant-query --prune 90           # Drop history older than 90 days")
}

func flagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

// execute runs the first selected query; errNoQuery when none is
func (q *query) execute(o options) error {
	switch {
	case o.stats:
		return q.showStats(o.days)
	case o.recent > 0:
		records, err := q.db.GetRecentRemovals(o.recent)
		return q.showRemovals(fmt.Sprintf("Most recent %d removals", o.recent), records, err)
	case o.action != "":
		records, err := q.db.GetRemovalsByAction(strings.ToUpper(o.action))
		return q.showRemovals("Records with action: "+o.action, records, err)
	case o.pattern != "":
		records, err := q.db.GetRemovalsByPattern(o.pattern)
		return q.showRemovals("Removals selected by pattern: "+o.pattern, records, err)
	case o.run != "":
		records, err := q.db.GetRemovalsByRun(o.run)
		return q.showRemovals("Events of run: "+o.run, records, err)
	case o.pathPattern != "":
		records, err := q.db.GetRemovalsByPath(o.pathPattern)
		return q.showRemovals("Removals matching path pattern: "+o.pathPattern, records, err)
	case o.largest > 0:
		records, err := q.db.GetLargestRemovals(o.largest)
		return q.showRemovals(fmt.Sprintf("Largest %d removals", o.largest), records, err)
	case o.counts > 0:
		return q.showCounts(o.counts)
	case o.prune > 0:
		return q.pruneHistory(o.prune)
	case o.dbStats:
		return q.showDatabaseStats()
	default:
		return errNoQuery
	}
}

func (q *query) printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	_, err = fmt.Fprintln(q.out, string(data))
	return err
}

func (q *query) showRemovals(title string, records []database.RemovalRecord, err error) error {
	if err != nil {
		return err
	}
	if q.json {
		return q.printJSON(records)
	}
	fmt.Fprintf(q.out, "%s\n\n", title)
	q.printRecords(records)
	return nil
}

func (q *query) showStats(days int) error {
	stats, err := q.db.GetRemovalStats(days)
	if err != nil {
		return fmt.Errorf("get statistics: %w", err)
	}

	if q.json {
		return q.printJSON(stats)
	}

	fmt.Fprintf(q.out, "Removal Statistics (Last %d days)\n", days)
	fmt.Fprintf(q.out, "Period: %s to %s\n\n", stats.StartDate.Format("2006-01-02"), stats.EndDate.Format("2006-01-02"))
	fmt.Fprintf(q.out, "Directories Removed:  %d\n", stats.TotalRemoved)
	fmt.Fprintf(q.out, "Dry-run Matches:      %d\n", stats.TotalDryRun)
	fmt.Fprintf(q.out, "Errors:               %d\n", stats.TotalErrors)
	fmt.Fprintf(q.out, "Space Freed:          %s\n", formatBytes(stats.TotalSpaceFreed))
	fmt.Fprintf(q.out, "Line Count Runs:      %d\n", stats.CountRuns)
	fmt.Fprintf(q.out, "Lines Counted:        %d\n\n", stats.LinesCounted)

	q.printGrouped("By Pattern:", stats.ByPattern)
	q.printGrouped("By Action:", stats.ByAction)
	return nil
}

func (q *query) printGrouped(title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintln(q.out, title)
	for _, k := range keys {
		fmt.Fprintf(q.out, "  %-15s %d\n", k, counts[k])
	}
	fmt.Fprintln(q.out)
}

func (q *query) showCounts(limit int) error {
	records, err := q.db.GetRecentCounts(limit)
	if err != nil {
		return fmt.Errorf("get line counts: %w", err)
	}

	if q.json {
		return q.printJSON(records)
	}

	if len(records) == 0 {
		fmt.Fprintln(q.out, "No records found")
		return nil
	}

	w := tabwriter.NewWriter(q.out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTimestamp\tLines\tFiles\tErrors\tRoot\tExtensions")
	_, _ = fmt.Fprintln(w, "--\t---------\t-----\t-----\t------\t----\t----------")
	for _, r := range records {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%d\t%s\t%s\n",
			r.ID, r.Timestamp.Format("2006-01-02 15:04:05"), r.TotalLines, r.Files,
			r.ReadErrors, r.Root, strings.Join(r.Extensions, ","))
	}
	return w.Flush()
}

func (q *query) pruneHistory(days int) error {
	deleted, err := q.db.DeleteOldRecords(days)
	if err != nil {
		return fmt.Errorf("prune history: %w", err)
	}
	if err := q.db.Vacuum(); err != nil {
		return fmt.Errorf("vacuum database: %w", err)
	}
	fmt.Fprintf(q.out, "Deleted %d records older than %d days\n", deleted, days)
	return nil
}

func (q *query) showDatabaseStats() error {
	stats, err := q.db.GetDatabaseStats()
	if err != nil {
		return fmt.Errorf("get database stats: %w", err)
	}

	if q.json {
		return q.printJSON(stats)
	}

	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(q.out, "%-22s %v\n", k+":", stats[k])
	}
	return nil
}

func (q *query) printRecords(records []database.RemovalRecord) {
	if len(records) == 0 {
		fmt.Fprintln(q.out, "No records found")
		return
	}

	w := tabwriter.NewWriter(q.out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTimestamp\tAction\tPattern\tSize\tPath")
	_, _ = fmt.Fprintln(w, "--\t---------\t------\t-------\t----\t----")

	for _, r := range records {
		path := r.Path
		if r.ErrorMessage != "" {
			path += " (" + r.ErrorMessage + ")"
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Timestamp.Format("2006-01-02 15:04:05"), r.Action, r.Pattern, formatBytes(r.Size), path)
	}
	_ = w.Flush()
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
