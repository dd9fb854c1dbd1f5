package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrAlreadyExists   = errors.New("entity already exists")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrReadDatabaseRow = errors.New("failed to read database row")

	// Inference call taxonomy. Callers classify with errors.Is and wrap
	// with fmt.Errorf("...: %w", Err...).
	ErrTransient      = errors.New("transient inference failure")
	ErrSchema         = errors.New("response failed schema validation")
	ErrFatal          = errors.New("fatal inference failure")
	ErrBudgetExceeded = errors.New("session cost ceiling exceeded")

	// Orchestration errors
	ErrConcurrentModification = errors.New("job run modified by another process")
	ErrJobStopped             = errors.New("job stopped by request")
	ErrInvalidExecContext     = errors.New("invalid executor context")
)

// Retryable reports whether err should be retried by the inference adapter.
// Only transient failures qualify; schema and fatal errors never do.
func Retryable(err error) bool {
	return errors.Is(err, ErrTransient)
}
