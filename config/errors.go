package config

import "fmt"

// Error is a configuration problem: unreadable file, bad YAML or invalid values.
type Error struct {
	File string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("configuration %s: %v", e.File, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
