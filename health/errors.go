package health

import "errors"

var (
	// ErrCheckerNotFound indicates the requested checker is not registered.
	ErrCheckerNotFound = errors.New("health: checker not found")

	// ErrCheckTimeout indicates a health check did not complete in time.
	ErrCheckTimeout = errors.New("health: check timed out")
)
