package extract

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedType   = errors.New("file type not supported")
	ErrExtractionFailure = errors.New("text extraction failed")
)

// ExtractionError reports a file whose text could not be read.
type ExtractionError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("could not extract %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("could not extract %s: %s", e.Path, e.Reason)
}

func (e *ExtractionError) Is(target error) bool {
	return target == ErrExtractionFailure
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

func failure(path, reason string, err error) error {
	return &ExtractionError{Path: path, Reason: reason, Err: err}
}
