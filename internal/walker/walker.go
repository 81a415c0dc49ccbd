// Package walker traverses a directory tree to count lines in selected files
// and to remove directories selected by name patterns.
//
// A Walker holds only immutable settings. Every call builds its own
// accumulators and returns them in a report, so calls do not share state.
package walker

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"file-assistant/internal/fsops"
	"file-assistant/internal/safety"
)

// Removal actions, as recorded in history.
const (
	ActionDelete = "DELETE"
	ActionDryRun = "DRY_RUN"
	ActionError  = "ERROR"
)

// Recorder persists operation history. *database.HistoryDB implements it.
type Recorder interface {
	RecordRemoval(runID string, dir RemovedDir, errMsg string) error
	RecordCount(report *CountReport) error
}

// Metrics exposes the counters a Walker updates.
type Metrics interface {
	LinesCountedTotal() prometheus.Counter
	FilesCountedTotal() prometheus.Counter
	ReadErrorsTotal() prometheus.Counter
	DirectoriesRemovedTotal() prometheus.Counter
	BytesFreedTotal() prometheus.Counter
	DeleteErrorsTotal() prometheus.Counter
	OperationDuration() prometheus.ObserverVec
}

// Walker is the path-filtering walker for one root directory.
type Walker struct {
	root      string
	fs        afero.Fs
	deleter   fsops.Deleter
	validator *safety.Validator
	logger    zerolog.Logger
	recorder  Recorder
	metrics   Metrics
	throttle  func()
	dryRun    bool
}

// Option configures a Walker.
type Option func(*Walker)

// WithFs sets the filesystem walked (default: the OS filesystem).
func WithFs(fs afero.Fs) Option {
	return func(w *Walker) { w.fs = fs }
}

// WithDeleter sets the deleter used for removals (default: RemoveAll on the walker's fs).
func WithDeleter(d fsops.Deleter) Option {
	return func(w *Walker) { w.deleter = d }
}

// WithValidator replaces the default validator, which only allows
// descendants of root. A nil validator disables the check.
func WithValidator(v *safety.Validator) Option {
	return func(w *Walker) { w.validator = v }
}

// WithLogger sets the logger (default: zerolog.Nop()).
func WithLogger(l zerolog.Logger) Option {
	return func(w *Walker) { w.logger = l }
}

// WithRecorder sends every count and removal to r.
func WithRecorder(r Recorder) Option {
	return func(w *Walker) { w.recorder = r }
}

// WithMetrics sets the counters updated by each call (default: an unregistered local set).
func WithMetrics(m Metrics) Option {
	return func(w *Walker) { w.metrics = m }
}

// WithThrottle installs a hook called once per visited directory.
func WithThrottle(fn func()) Option {
	return func(w *Walker) { w.throttle = fn }
}

// WithDryRun makes removals report what they would delete without deleting.
func WithDryRun(dryRun bool) Option {
	return func(w *Walker) { w.dryRun = dryRun }
}

// New creates a Walker for root. A relative root is made absolute against the
// working directory. The root is not checked here: a missing root behaves like
// an empty tree.
func New(root string, opts ...Option) *Walker {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	w := &Walker{
		root:   filepath.Clean(root),
		logger: zerolog.Nop(),
	}
	w.validator = safety.NewValidator([]string{w.root}, nil)
	for _, opt := range opts {
		opt(w)
	}
	if w.fs == nil {
		w.fs = afero.NewOsFs()
	}
	if w.deleter == nil {
		w.deleter = fsops.FsDeleter{Fs: w.fs}
	}
	if w.metrics == nil {
		w.metrics = newLocalMetrics()
	}
	if w.throttle == nil {
		w.throttle = func() {}
	}
	return w
}

// Root returns the absolute, cleaned root path.
func (w *Walker) Root() string {
	return w.root
}

// rootIsDir reports whether the root exists as a directory.
func (w *Walker) rootIsDir() bool {
	info, err := w.fs.Stat(w.root)
	if err != nil {
		if !os.IsNotExist(err) {
			w.logger.Warn().Err(err).Str("root", w.root).Msg("Cannot stat root")
		}
		return false
	}
	return info.IsDir()
}

// walkRoot is the path handed to afero.Walk. The trailing separator makes the
// walk's initial lstat resolve a root that is itself a symlink, so counting
// sees the same tree that removal lists.
func (w *Walker) walkRoot() string {
	if strings.HasSuffix(w.root, string(filepath.Separator)) {
		return w.root
	}
	return w.root + string(filepath.Separator)
}

// localMetrics backs a Walker that was not given registered metrics.
type localMetrics struct {
	lines, files, readErrs, dirs, bytes, delErrs prometheus.Counter
	duration                                     *prometheus.HistogramVec
}

func newLocalMetrics() *localMetrics {
	counter := func(name string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{Name: name})
	}
	return &localMetrics{
		lines:    counter("lines"),
		files:    counter("files"),
		readErrs: counter("read_errors"),
		dirs:     counter("dirs"),
		bytes:    counter("bytes"),
		delErrs:  counter("delete_errors"),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: "duration"}, []string{"operation"}),
	}
}

func (m *localMetrics) LinesCountedTotal() prometheus.Counter       { return m.lines }
func (m *localMetrics) FilesCountedTotal() prometheus.Counter       { return m.files }
func (m *localMetrics) ReadErrorsTotal() prometheus.Counter         { return m.readErrs }
func (m *localMetrics) DirectoriesRemovedTotal() prometheus.Counter { return m.dirs }
func (m *localMetrics) BytesFreedTotal() prometheus.Counter         { return m.bytes }
func (m *localMetrics) DeleteErrorsTotal() prometheus.Counter       { return m.delErrs }
func (m *localMetrics) OperationDuration() prometheus.ObserverVec   { return m.duration }
