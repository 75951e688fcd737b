package store

import "fmt"

// WriteError is returned when a record could not be persisted. The record
// is safe to retry.
type WriteError struct {
	Op  string
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("writing play (%s): %v", e.Op, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// CorruptRowError reports a stored row that could not be decoded. Queries
// skip such rows and keep going.
type CorruptRowError struct {
	ID  int64
	Err error
}

func (e *CorruptRowError) Error() string {
	return fmt.Sprintf("corrupt row %d: %v", e.ID, e.Err)
}

func (e *CorruptRowError) Unwrap() error { return e.Err }
