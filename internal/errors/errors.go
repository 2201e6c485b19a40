package errors

import (
	"errors"
	"fmt"
)

// Common error types shared across packages
var (
	// Lookup errors
	ErrNotFound = errors.New("not found")

	// Token errors
	ErrInvalidToken = errors.New("invalid token")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
