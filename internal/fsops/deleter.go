package fsops

// Deleter abstracts filesystem delete operations
// Lets tests prove dry-run never deletes and inject delete failures
type Deleter interface {
	RemoveAll(path string) error
}
