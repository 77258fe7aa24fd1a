package dataset

import (
	"errors"
	"fmt"
)

// ErrDataUnavailable means no usable copy of a dataset exists: the refresh
// failed and nothing was cached locally.
var ErrDataUnavailable = errors.New("dataset unavailable")

// DecodeError reports a cached file whose content could not be parsed.
type DecodeError struct {
	Path   string
	Format Format
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s file %s: %v", e.Format, e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
