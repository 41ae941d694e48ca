// Package assets opens static files used by reports, such as letterhead
// logos, from the local filesystem or an S3-compatible bucket.
package assets

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when the requested asset does not exist.
	ErrNotFound = errors.New("asset not found")
	// ErrInvalidKey is returned for empty keys or keys escaping the root.
	ErrInvalidKey = errors.New("invalid asset key")
	// ErrAccessDenied is returned when the provider refuses the read.
	ErrAccessDenied = errors.New("asset access denied")
)

// Error wraps an asset failure with the key involved.
type Error struct {
	Op  string
	Key string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("assets %s %q: %v", e.Op, e.Key, e.Err)
}

// Unwrap exposes the underlying error to errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

func validateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	for _, part := range strings.Split(strings.ReplaceAll(key, "\\", "/"), "/") {
		if part == ".." {
			return ErrInvalidKey
		}
	}
	return nil
}
