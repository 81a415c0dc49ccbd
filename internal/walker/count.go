package walker

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"file-assistant/internal/match"
)

// CountLines returns the total number of lines in files under root whose name
// ends with one of extensions, ignoring every directory matched by a skip
// pattern together with its subtree. Unreadable files count as zero.
func (w *Walker) CountLines(extensions, skipPatterns []string) (int, error) {
	report, err := w.Count(extensions, skipPatterns)
	if err != nil {
		return 0, err
	}
	return report.TotalLines, nil
}

// Count performs CountLines and returns the full report.
func (w *Walker) Count(extensions, skipPatterns []string) (*CountReport, error) {
	start := time.Now()

	for _, ext := range extensions {
		if ext == "" {
			return nil, &ConfigError{Field: "extensions", Err: ErrEmptyExtension}
		}
	}
	skip, err := match.Compile(w.root, skipPatterns)
	if err != nil {
		return nil, &ConfigError{Field: "skip_patterns", Err: err}
	}

	report := &CountReport{
		RunID:        uuid.NewString(),
		Root:         w.root,
		Extensions:   extensions,
		SkipPatterns: skipPatterns,
	}

	if len(extensions) > 0 && w.rootIsDir() {
		paths := w.collectFiles(extensions, skip, report)
		w.countFiles(paths, report)
	}

	report.Duration = time.Since(start)
	w.metrics.OperationDuration().WithLabelValues("count").Observe(report.Duration.Seconds())

	if w.recorder != nil {
		if err := w.recorder.RecordCount(report); err != nil {
			w.logger.Error().Err(err).Msg("Failed to record line count")
		}
	}

	w.logger.Info().
		Str("root", w.root).
		Int("files", len(report.Files)).
		Int("lines", report.TotalLines).
		Int("read_errors", len(report.Errors)).
		Int("skipped_dirs", report.SkippedDirs).
		Dur("duration", report.Duration).
		Msg("Line count complete")

	return report, nil
}

// collectFiles walks the tree and returns the sorted set of matching files.
func (w *Walker) collectFiles(extensions []string, skip *match.Matcher, report *CountReport) []string {
	matching := make(map[string]struct{})

	_ = afero.Walk(w.fs, w.walkRoot(), func(path string, info os.FileInfo, err error) error {
		if err != nil {
			w.logger.Warn().Err(err).Str("path", path).Msg("Cannot read directory, skipping")
			return nil
		}

		if info.IsDir() {
			if res, ok := skip.Match(path); ok {
				w.logger.Debug().Str("path", path).Str("pattern", res.Pattern).Msg("Skipping directory")
				report.SkippedDirs++
				return filepath.SkipDir
			}
			w.throttle()
			return nil
		}

		if match.MatchSuffix(info.Name(), extensions) {
			matching[path] = struct{}{}
		}
		return nil
	})

	paths := make([]string, 0, len(matching))
	for p := range matching {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func (w *Walker) countFiles(paths []string, report *CountReport) {
	for _, path := range paths {
		lines, err := countFileLines(w.fs, path)
		if err != nil {
			readErr := &ReadError{Path: path, Err: err}
			report.Errors = append(report.Errors, readErr)
			w.metrics.ReadErrorsTotal().Inc()
			w.logger.Warn().Err(err).Str("path", path).Msg("Error reading file")
			continue
		}
		report.Files = append(report.Files, FileCount{Path: path, Lines: lines})
		report.TotalLines += lines
	}

	w.metrics.FilesCountedTotal().Add(float64(len(report.Files)))
	w.metrics.LinesCountedTotal().Add(float64(report.TotalLines))
}
