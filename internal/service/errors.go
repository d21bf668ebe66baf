package service

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidMove is returned when a move would make a node its own ancestor or
	// put it under a file.
	ErrInvalidMove = errors.New("invalid move destination")

	// ErrInvalidInput marks drafts and patches that fail validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoRemote is returned by remote-only operations in local-only mode.
	ErrNoRemote = errors.New("no remote backend configured")
)

// PersistenceError wraps a backend read or write failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence error during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func persistErr(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}
