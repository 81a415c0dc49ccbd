package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Walker subsystem metrics
var (
	// LinesCountedTotal tracks lines counted across all count runs
	LinesCountedTotal prometheus.Counter

	// FilesCountedTotal tracks files successfully read by count runs
	FilesCountedTotal prometheus.Counter

	// ReadErrorsTotal tracks files that could not be counted
	ReadErrorsTotal prometheus.Counter

	// DirectoriesRemovedTotal tracks matched directories deleted
	DirectoriesRemovedTotal prometheus.Counter

	// BytesFreedTotal tracks bytes freed by directory removal
	BytesFreedTotal prometheus.Counter

	// DeleteErrorsTotal tracks failed or rejected removals
	DeleteErrorsTotal prometheus.Counter

	// OperationDuration tracks walk durations per operation (count, remove)
	OperationDuration *prometheus.HistogramVec

	// LastRunTimestamp records the Unix time an operation last finished
	LastRunTimestamp *prometheus.GaugeVec
)

func initWalkerMetrics() {
	LinesCountedTotal = NewCounter(
		"fileassistant_lines_counted_total",
		"Total number of lines counted.",
	)

	FilesCountedTotal = NewCounter(
		"fileassistant_files_counted_total",
		"Total number of files whose lines were counted.",
	)

	ReadErrorsTotal = NewCounter(
		"fileassistant_read_errors_total",
		"Total number of files that could not be read while counting.",
	)

	DirectoriesRemovedTotal = NewCounter(
		"fileassistant_directories_removed_total",
		"Total number of matched directories removed.",
	)

	BytesFreedTotal = NewBytesCounter(
		"fileassistant_bytes_freed_total",
		"Total bytes freed by directory removal.",
	)

	DeleteErrorsTotal = NewCounter(
		"fileassistant_delete_errors_total",
		"Total number of directory removals that failed or were rejected.",
	)

	OperationDuration = NewDurationHistogramVec(
		"fileassistant_operation_duration_seconds",
		"Duration of walker operations in seconds.",
		[]string{"operation"},
	)

	LastRunTimestamp = NewGaugeVec(
		"fileassistant_last_run_timestamp",
		"Timestamp of the last completed operation (Unix epoch seconds).",
		[]string{"operation"},
	)
}

func registerWalkerMetrics() {
	prometheus.MustRegister(LinesCountedTotal)
	prometheus.MustRegister(FilesCountedTotal)
	prometheus.MustRegister(ReadErrorsTotal)
	prometheus.MustRegister(DirectoriesRemovedTotal)
	prometheus.MustRegister(BytesFreedTotal)
	prometheus.MustRegister(DeleteErrorsTotal)
	prometheus.MustRegister(OperationDuration)
	prometheus.MustRegister(LastRunTimestamp)
}

// RecordRun updates the last run timestamp of an operation to now
func RecordRun(operation string) {
	LastRunTimestamp.WithLabelValues(operation).Set(float64(time.Now().Unix()))
}

// WalkerMetrics hands the registered collectors to a walker.Walker
type WalkerMetrics struct{}

// ForWalker initializes metrics and returns the walker adapter
func ForWalker() WalkerMetrics {
	Init()
	return WalkerMetrics{}
}

func (WalkerMetrics) LinesCountedTotal() prometheus.Counter       { return LinesCountedTotal }
func (WalkerMetrics) FilesCountedTotal() prometheus.Counter       { return FilesCountedTotal }
func (WalkerMetrics) ReadErrorsTotal() prometheus.Counter         { return ReadErrorsTotal }
func (WalkerMetrics) DirectoriesRemovedTotal() prometheus.Counter { return DirectoriesRemovedTotal }
func (WalkerMetrics) BytesFreedTotal() prometheus.Counter         { return BytesFreedTotal }
func (WalkerMetrics) DeleteErrorsTotal() prometheus.Counter       { return DeleteErrorsTotal }
func (WalkerMetrics) OperationDuration() prometheus.ObserverVec   { return OperationDuration }
