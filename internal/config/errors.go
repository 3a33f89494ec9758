package config

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// ErrValidationFailed is matched by every error returned from Validate.
var ErrValidationFailed = errors.New("config validation failed")

// ParseError reports a config file that could not be decoded. Line and
// Column are zero when the decoder gives no position.
type ParseError struct {
	Path    string
	Line    int
	Column  int
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s", e.Path, e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

func (e *ParseError) Unwrap() error { return e.Err }
