package tempfiles

import (
	"fmt"
	"os"
	"sync"
)

// Registry hands out unique temp file paths under one directory and
// remembers every path it created. The list is append-only while a file is
// being processed; Drain removes everything at completion.
type Registry struct {
	dir string

	mu    sync.Mutex
	paths []string
}

func NewRegistry(dir string) (*Registry, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	return &Registry{dir: dir}, nil
}

// NewTempFile creates a unique empty file with the given suffix and
// registers it for cleanup.
func (r *Registry) NewTempFile(suffix string) (string, error) {
	f, err := os.CreateTemp(r.dir, "cap_*"+suffix)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	path := f.Name()
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}

	r.mu.Lock()
	r.paths = append(r.paths, path)
	r.mu.Unlock()

	return path, nil
}

// Drain removes every registered path. Paths already moved or removed by the
// caller are not an error.
func (r *Registry) Drain() error {
	r.mu.Lock()
	paths := r.paths
	r.paths = nil
	r.mu.Unlock()

	var firstErr error
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
