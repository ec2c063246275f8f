package cmd

import "fmt"

// ExitCodeError represents an error that should cause the process to exit
// with a specific exit code. This lets RunE handlers signal the precise
// exit status spec.md §6 mandates (0 clean, 1 config error, 2 bind
// failure) without calling os.Exit directly, keeping Execute testable.
type ExitCodeError struct {
	Code int
	Err  error
}

// Error implements the error interface.
func (e *ExitCodeError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit code %d", e.Code)
}

// Unwrap exposes the underlying cause for errors.Is/errors.As.
func (e *ExitCodeError) Unwrap() error { return e.Err }

// NewExitCodeError wraps err with the exit code the process should use.
func NewExitCodeError(code int, err error) *ExitCodeError {
	return &ExitCodeError{Code: code, Err: err}
}

const (
	// ExitOK is returned on clean shutdown (spec.md §6).
	ExitOK = 0
	// ExitConfigError is returned when the configuration file is missing,
	// invalid, or fails validation.
	ExitConfigError = 1
	// ExitBindFailed is returned when the listening socket cannot be bound.
	ExitBindFailed = 2
)
