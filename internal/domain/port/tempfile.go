package port

// TempFileProvider hands out unique scratch paths and remembers every path it
// created. The registry is append-only during a file's processing and drained
// when the file completes.
type TempFileProvider interface {
	NewTempFile(suffix string) (string, error)
	Drain() error
}
