package result

import "fmt"

// InfraError reports a backing-store fault: unreachable store, broken
// connection, or a document the store returned but nobody can decode.
// It is never retried here; callers decide their own retry policy.
type InfraError struct {
	Op  string
	Err error
}

func (e *InfraError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *InfraError) Unwrap() error {
	return e.Err
}

// Infra wraps err as an *InfraError, or returns nil when err is nil.
func Infra(op string, err error) error {
	if err == nil {
		return nil
	}
	return &InfraError{Op: op, Err: err}
}
