package mdstore

import "errors"

// Sentinel errors for Layer 0 generic file operations.
var (
	ErrInvalidPath           = errors.New("invalid-path")
	ErrNotFound              = errors.New("not-found")
	ErrPermissionSystemPath  = errors.New("permission-system-path")
)

// IOError wraps an underlying filesystem error as an `io-error` failure.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return "io-error: " + e.Op + ": " + e.Err.Error()
}

func (e *IOError) Unwrap() error {
	return e.Err
}

func ioError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Op: op, Err: err}
}
