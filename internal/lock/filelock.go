package lock

import (
	"fmt"

	"github.com/gofrs/flock"
)

// WithFileLock acquires an exclusive cross-process advisory lock on path
// (created if absent) for the duration of fn. It backs operations that
// must be serialized across OS processes, not just goroutines: scope.Open
// holds one across a scope's whole config-load-and-migrate sequence.
func WithFileLock(path string, fn func() error) error {
	fl := flock.New(path)
	if err := fl.Lock(); err != nil {
		return fmt.Errorf("acquire file lock %s: %w", path, err)
	}
	defer func() { _ = fl.Unlock() }()

	return fn()
}
