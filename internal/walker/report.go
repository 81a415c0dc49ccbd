package walker

import "time"

// FileCount is one counted file.
type FileCount struct {
	Path  string
	Lines int
}

// CountReport is the result of one Count call.
type CountReport struct {
	RunID        string
	Root         string
	Extensions   []string
	SkipPatterns []string
	Files        []FileCount // successfully read files, sorted by path
	SkippedDirs  int         // directories pruned by a skip pattern
	TotalLines   int
	Errors       []*ReadError
	Duration     time.Duration
}

// RemovedDir is one directory selected for removal.
type RemovedDir struct {
	Path    string
	Pattern string // pattern that selected the directory
	Segment string // path segment the pattern matched
	Size    int64  // bytes of regular files below Path before removal
	Files   int64
	Action  string // ActionDelete, ActionDryRun or ActionError
}

// RemoveReport is the result of one Remove call. When Remove fails the
// report still lists the directories removed before the failure.
type RemoveReport struct {
	RunID       string
	Root        string
	Patterns    []string
	DryRun      bool
	Removed     int // directly matched directories removed (or that would be, in dry-run)
	Directories []RemovedDir
	BytesFreed  int64
	Duration    time.Duration
}
