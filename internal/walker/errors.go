package walker

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyExtension is returned when an extension entry is the empty string,
	// which would otherwise select every file.
	ErrEmptyExtension = errors.New("extension is empty")

	// ErrNotUTF8 marks files whose content is not valid UTF-8.
	ErrNotUTF8 = errors.New("file is not valid UTF-8")
)

// ReadError reports a file that could not be counted. It never aborts a count.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// DeleteError reports a directory that could not be removed. It aborts the
// removal call; directories removed before it stay removed.
type DeleteError struct {
	Path string
	Err  error
}

func (e *DeleteError) Error() string {
	return fmt.Sprintf("remove %s: %v", e.Path, e.Err)
}

func (e *DeleteError) Unwrap() error { return e.Err }

// ConfigError reports invalid caller input.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }
