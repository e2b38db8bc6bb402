package airquality

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyDataset is returned when no complete rows remain for a derived query.
var ErrEmptyDataset = errors.New("dataset has no complete rows")

// ValidationError reports bad client input. Fields names the offending
// inputs, if any.
type ValidationError struct {
	Reason string
	Fields []string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Reason
	}
	return e.Reason + ": " + strings.Join(e.Fields, ", ")
}

// ModelInferenceError wraps a failed or malformed model call.
type ModelInferenceError struct {
	Err error
}

func (e *ModelInferenceError) Error() string {
	return fmt.Sprintf("model inference failed: %v", e.Err)
}

func (e *ModelInferenceError) Unwrap() error { return e.Err }

// StorageError wraps a history journal failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("history %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// StartupError marks a component that could not be loaded. The process must
// not serve requests after one.
type StartupError struct {
	Component string
	Err       error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("%s: %v", e.Component, e.Err)
}

func (e *StartupError) Unwrap() error { return e.Err }
