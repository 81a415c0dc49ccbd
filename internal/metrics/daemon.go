package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"file-assistant/internal/disk"
)

// Daemon subsystem metrics
var (
	// ErrorsTotal tracks errors outside the walker (server, history, disk stats)
	ErrorsTotal prometheus.Counter

	// FreeSpacePercent tracks free space on the filesystem holding a root
	FreeSpacePercent *prometheus.GaugeVec

	// PathFreeBytes tracks free space available on the filesystem containing the root
	PathFreeBytes *prometheus.GaugeVec

	// PathTotalBytes tracks total capacity of the filesystem containing the root
	PathTotalBytes *prometheus.GaugeVec
)

func initDaemonMetrics() {
	ErrorsTotal = NewCounter(
		"fileassistant_daemon_errors_total",
		"Total number of errors encountered outside directory walks.",
	)

	FreeSpacePercent = NewGaugeVec(
		"fileassistant_free_space_percent",
		"Current free space percentage of the filesystem holding the root.",
		[]string{"path"},
	)

	PathFreeBytes = NewGaugeVec(
		"fileassistant_path_free_bytes",
		"Free space available on the filesystem containing this path.",
		[]string{"path"},
	)

	PathTotalBytes = NewGaugeVec(
		"fileassistant_path_total_bytes",
		"Total capacity of the filesystem containing this path.",
		[]string{"path"},
	)
}

func registerDaemonMetrics() {
	prometheus.MustRegister(ErrorsTotal)
	prometheus.MustRegister(FreeSpacePercent)
	prometheus.MustRegister(PathFreeBytes)
	prometheus.MustRegister(PathTotalBytes)
}

// UpdateDiskMetrics refreshes the filesystem gauges for path
func UpdateDiskMetrics(path string) error {
	usedPercent, freeBytes, totalBytes, err := disk.GetDiskUsage(path)
	if err != nil {
		ErrorsTotal.Inc()
		return err
	}
	FreeSpacePercent.WithLabelValues(path).Set(100.0 - usedPercent)
	PathFreeBytes.WithLabelValues(path).Set(float64(freeBytes))
	PathTotalBytes.WithLabelValues(path).Set(float64(totalBytes))
	return nil
}
