package fsops

import "github.com/spf13/afero"

// FsDeleter implements Deleter on top of an afero filesystem
type FsDeleter struct {
	Fs afero.Fs
}

func (d FsDeleter) RemoveAll(path string) error {
	return d.Fs.RemoveAll(path)
}
