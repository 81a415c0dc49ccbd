package disk

import (
	"os"
	"path/filepath"
	"syscall"

	"github.com/spf13/afero"
)

// GetDiskUsage returns the percentage of disk space used for a given path
func GetDiskUsage(path string) (usedPercent float64, freeBytes int64, totalBytes int64, err error) {
	var stat syscall.Statfs_t
	err = syscall.Statfs(path, &stat)
	if err != nil {
		return 0, 0, 0, err
	}

	totalBytes = int64(stat.Blocks) * int64(stat.Bsize)
	freeBytes = int64(stat.Bavail) * int64(stat.Bsize)
	usedBytes := totalBytes - freeBytes

	if totalBytes > 0 {
		usedPercent = (float64(usedBytes) / float64(totalBytes)) * 100.0
	}

	return usedPercent, freeBytes, totalBytes, nil
}

// DirSize sums the sizes of regular files below path.
// Entries that cannot be read are skipped; a missing path has size 0.
func DirSize(fs afero.Fs, path string) (size int64, files int64) {
	_ = afero.Walk(fs, path, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			if info != nil && info.IsDir() && p != path {
				return filepath.SkipDir
			}
			return nil
		}
		if info.Mode().IsRegular() {
			size += info.Size()
			files++
		}
		return nil
	})
	return size, files
}
