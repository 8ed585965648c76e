package service

import (
	"errors"
	"fmt"
)

// ErrToolNotFound indicates the external PDF tool could not be launched at
// all, typically because the executable is missing from PATH.
var ErrToolNotFound = errors.New("pdf tool not found")

// ExitError indicates the external PDF tool started but exited non-zero.
type ExitError struct {
	Tool   string
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s exited with code %d: %s", e.Tool, e.Code, e.Stderr)
	}
	return fmt.Sprintf("%s exited with code %d", e.Tool, e.Code)
}
