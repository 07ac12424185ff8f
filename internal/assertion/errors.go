package assertion

import (
	"errors"
	"fmt"
)

// FieldError reports a required-field violation during assertion
// construction or re-validation. Field names the offending path within
// the variant's payload.
type FieldError struct {
	Kind    Kind
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid %s assertion: %s: %s", e.Kind, e.Field, e.Message)
}

// IsFieldError returns true if the error is an assertion field
// violation. Uses errors.As to handle wrapped errors.
func IsFieldError(err error) bool {
	var fe *FieldError
	return errors.As(err, &fe)
}
