// Package errors carries coded errors shared by every thermochart package.
// Each package declares its own codes next to its code (errors.go); the code
// is what logs, HTTP status mapping and metric labels key on.
package errors

// ErrorCode is a stable, snake_case error identifier
type ErrorCode string

// Coder is anything that reports an ErrorCode
type Coder interface {
	Code() ErrorCode
}

// Error is a coded error with an optional message, payload and cause
type Error interface {
	error
	Coder
	WithMessage(msg string) Error
	WithData(data any) Error
	GetData() any
	Unwrap() error
}

// Factory builds coded errors
type Factory interface {
	New(code ErrorCode) Error
	Wrap(code ErrorCode, err error) Error
	WithMessage(code ErrorCode, msg string) Error
	WithData(code ErrorCode, data any) Error
}
