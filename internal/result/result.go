// Package result holds the envelope every graph operation returns.
//
// Expected failures (bad input, missing records, duplicate ids) travel inside a
// Result. Infrastructure faults never do: they are returned as a separate
// error, usually an *InfraError.
package result

import (
	"encoding/json"
	"fmt"
)

// Kind classifies a failed Result.
type Kind int

const (
	KindNone Kind = iota
	KindValidation
	KindNotFound
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Result is the {success, message, payload} envelope.
// A failed Result always carries the zero Payload.
type Result[T any] struct {
	Success bool
	Message string
	Payload T
	Kind    Kind
}

// Ok wraps a successful payload.
func Ok[T any](payload T) Result[T] {
	return Result[T]{Success: true, Payload: payload}
}

// Fail builds a failed result with a formatted message.
func Fail[T any](kind Kind, format string, args ...any) Result[T] {
	return Result[T]{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Validation, NotFound and Conflict are shorthands for Fail.
func Validation[T any](format string, args ...any) Result[T] {
	return Fail[T](KindValidation, format, args...)
}

func NotFound[T any](format string, args ...any) Result[T] {
	return Fail[T](KindNotFound, format, args...)
}

func Conflict[T any](format string, args ...any) Result[T] {
	return Fail[T](KindConflict, format, args...)
}

// Forward re-types a failed result so it can be returned from an operation
// with a different payload type. It panics on a successful result, since the
// payload would be lost.
func Forward[U, T any](r Result[T]) Result[U] {
	if r.Success {
		panic("result: Forward called on a successful result")
	}
	return Result[U]{Kind: r.Kind, Message: r.Message}
}

// Is reports whether r failed with the given kind.
func (r Result[T]) Is(kind Kind) bool {
	return !r.Success && r.Kind == kind
}

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Payload any    `json:"payload"`
}

// MarshalJSON writes the wire envelope; payload is null on failure.
func (r Result[T]) MarshalJSON() ([]byte, error) {
	env := envelope{Success: r.Success, Message: r.Message}
	if r.Success {
		env.Payload = r.Payload
	}
	return json.Marshal(env)
}
