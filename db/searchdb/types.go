package searchdb

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("chunk not found")
	ErrIndex    = errors.New("index operation failed")
)

// IndexError wraps a failure of the inverted index.
type IndexError struct {
	Op  string
	Err error
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("index %s failed: %v", e.Op, e.Err)
}

func (e *IndexError) Is(target error) bool {
	return target == ErrIndex
}

func (e *IndexError) Unwrap() error {
	return e.Err
}

type NotFoundError struct {
	DocID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("chunk not found: %s", e.DocID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
