package walker

import (
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"file-assistant/internal/disk"
	"file-assistant/internal/match"
)

// RemoveDirectories deletes every directory below root matched by one of
// patterns, together with its contents, and returns how many matched
// directories were removed. Directories nested in a removed one are not
// counted. The first failed deletion aborts the call with a *DeleteError.
func (w *Walker) RemoveDirectories(patterns []string) (int, error) {
	report, err := w.Remove(patterns)
	if report == nil {
		return 0, err
	}
	return report.Removed, err
}

// Remove performs RemoveDirectories and returns the full report. On a
// *DeleteError the report covers the directories removed before it.
func (w *Walker) Remove(patterns []string) (*RemoveReport, error) {
	start := time.Now()

	m, err := match.Compile(w.root, patterns)
	if err != nil {
		return nil, &ConfigError{Field: "patterns", Err: err}
	}

	report := &RemoveReport{
		RunID:    uuid.NewString(),
		Root:     w.root,
		Patterns: patterns,
		DryRun:   w.dryRun,
	}

	if !m.Empty() && w.rootIsDir() {
		err = w.removeLevel(w.root, m, report)
	}

	report.Duration = time.Since(start)
	w.metrics.OperationDuration().WithLabelValues("remove").Observe(report.Duration.Seconds())

	event := w.logger.Info()
	if err != nil {
		event = w.logger.Error().Err(err)
	}
	event.
		Str("root", w.root).
		Int("removed", report.Removed).
		Int64("bytes_freed", report.BytesFreed).
		Bool("dry_run", w.dryRun).
		Dur("duration", report.Duration).
		Msg("Directory removal complete")

	return report, err
}

// removeLevel handles one directory: its listing is read once, matched
// subdirectories are removed and the others are descended into.
func (w *Walker) removeLevel(dir string, m *match.Matcher, report *RemoveReport) error {
	w.throttle()

	entries, err := afero.ReadDir(w.fs, dir)
	if err != nil {
		if !os.IsNotExist(err) {
			w.logger.Warn().Err(err).Str("path", dir).Msg("Cannot read directory, skipping")
		}
		return nil
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())

		res, ok := m.Match(path)
		if !ok {
			if err := w.removeLevel(path, m, report); err != nil {
				return err
			}
			continue
		}

		if err := w.removeMatched(path, res, report); err != nil {
			return err
		}
	}
	return nil
}

func (w *Walker) removeMatched(path string, res match.Result, report *RemoveReport) error {
	if _, err := w.fs.Stat(path); os.IsNotExist(err) {
		w.logger.Debug().Str("path", path).Msg("Directory vanished before removal")
		return nil
	}

	size, files := disk.DirSize(w.fs, path)
	dir := RemovedDir{
		Path:    path,
		Pattern: res.Pattern,
		Segment: res.Segment,
		Size:    size,
		Files:   files,
	}

	if w.validator != nil {
		if err := w.validator.ValidateDeleteTarget(path); err != nil {
			return w.failRemoval(report, dir, err)
		}
	}

	if w.dryRun {
		dir.Action = ActionDryRun
		w.logger.Info().Str("path", path).Str("pattern", res.Pattern).Int64("size", size).
			Msg("[DRY RUN] Would remove directory recursively")
	} else {
		if err := w.deleter.RemoveAll(path); err != nil {
			return w.failRemoval(report, dir, err)
		}
		dir.Action = ActionDelete
		report.BytesFreed += size
		w.metrics.DirectoriesRemovedTotal().Inc()
		w.metrics.BytesFreedTotal().Add(float64(size))
		w.logger.Info().Str("path", path).Str("pattern", res.Pattern).Int64("size", size).
			Msg("Removed directory")
	}

	report.Removed++
	report.Directories = append(report.Directories, dir)
	w.record(report.RunID, dir, "")
	return nil
}

func (w *Walker) failRemoval(report *RemoveReport, dir RemovedDir, err error) error {
	dir.Action = ActionError
	w.metrics.DeleteErrorsTotal().Inc()
	w.record(report.RunID, dir, err.Error())
	return &DeleteError{Path: dir.Path, Err: err}
}

func (w *Walker) record(runID string, dir RemovedDir, errMsg string) {
	if w.recorder == nil {
		return
	}
	if err := w.recorder.RecordRemoval(runID, dir, errMsg); err != nil {
		w.logger.Error().Err(err).Str("path", dir.Path).Msg("Failed to record removal")
	}
}
