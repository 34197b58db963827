package reports

import "fmt"

// ValidationError is returned by Create and Update when a required field is
// empty after trimming. The collection is left untouched.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

// ImportError is returned by Import when the input is not JSON or its
// top-level value is not an array. The collection is left untouched.
type ImportError struct {
	Reason string
	Err    error
}

func (e *ImportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cannot import: %s: %v", e.Reason, e.Err)
	}
	return "cannot import: " + e.Reason
}

func (e *ImportError) Unwrap() error {
	return e.Err
}
