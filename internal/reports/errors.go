package reports

import (
	"errors"
	"fmt"
)

// ErrViewNotFound is matched by every ViewNotFoundError
var ErrViewNotFound = errors.New("view not found")

// ViewNotFoundError means a report depends on a derived view that has not been created
type ViewNotFoundError struct {
	View string
	Err  error // driver error, nil when detected by catalog probe
}

func (e *ViewNotFoundError) Error() string {
	return fmt.Sprintf("view %q does not exist", e.View)
}

func (e *ViewNotFoundError) Is(target error) bool { return target == ErrViewNotFound }

func (e *ViewNotFoundError) Unwrap() error { return e.Err }

// QueryError is any other database failure while running a report operation
type QueryError struct {
	Op  string
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }
