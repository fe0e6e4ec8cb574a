package assemble

import "errors"

// Error kinds drive the CLI exit code. Wrap with %w so errors.Is works
// across the driver.
var (
	// ErrUsage marks invalid arguments or configuration.
	ErrUsage = errors.New("invalid arguments")
	// ErrInput marks filesystem and discovery failures.
	ErrInput = errors.New("input failure")
	// ErrEncode marks compression and container failures.
	ErrEncode = errors.New("encode failure")
)
