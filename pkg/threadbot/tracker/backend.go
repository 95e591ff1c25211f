package tracker

import "fmt"

// Backend kinds accepted by NewBackend.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"

	// DefaultSQLitePath is used when the sqlite backend has no path.
	DefaultSQLitePath = "thread_config.db"
)

// NewBackend builds the backend named by kind.
func NewBackend(kind, path string) (Backend, error) {
	switch kind {
	case "", BackendFile:
		return NewFileBackend(path), nil
	case BackendSQLite:
		if path == "" {
			path = DefaultSQLitePath
		}
		return NewSQLiteBackend(path)
	case BackendMemory:
		return NewMemoryBackend(nil), nil
	default:
		return nil, fmt.Errorf("unknown storage type %q", kind)
	}
}
