package bridge

import (
	"errors"
	"fmt"
)

// OperationError is an expected failure of an operation. It is reported to the
// caller with status ERROR.
type OperationError struct {
	Message string
	Err     error
}

func (e *OperationError) Error() string {
	return e.Message
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// IsOperationError reports whether err is an *OperationError.
func IsOperationError(err error) bool {
	var opErr *OperationError
	return errors.As(err, &opErr)
}

// operationFailed wraps err as an OperationError whose message is
// "<prefix>: <err>".
func operationFailed(prefix string, err error) error {
	return &OperationError{Message: fmt.Sprintf("%s: %v", prefix, err), Err: err}
}
