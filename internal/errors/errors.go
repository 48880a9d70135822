// Package errors implements the pipeline's closed error taxonomy: a fixed
// set of ErrorType values that every external-boundary call is classified
// into, plus the AppError carrier type used to propagate them with context.
package errors

import "fmt"

// ErrorType is the closed classification of everything that can go wrong
// at an external boundary (subprocess, HTTP, file IO).
type ErrorType string

const (
	Network         ErrorType = "NETWORK"
	Timeout         ErrorType = "TIMEOUT"
	RateLimit       ErrorType = "RATE_LIMIT"
	Auth            ErrorType = "AUTH"
	Content         ErrorType = "CONTENT"
	FileIO          ErrorType = "FILE_IO"
	Parse           ErrorType = "PARSE"
	InvalidInput    ErrorType = "INVALID_INPUT"
	Cancelled       ErrorType = "CANCELLED"
	ExternalService ErrorType = "EXTERNAL_SERVICE"
	Unknown         ErrorType = "UNKNOWN"
)

// retryable is the set of ErrorTypes the resume mechanism will retry.
var retryable = map[ErrorType]bool{
	Network:         true,
	Timeout:         true,
	RateLimit:       true,
	ExternalService: true,
}

// IsRetryable reports whether a video failed with this error type is
// eligible for automatic resume. AUTH, CONTENT, INVALID_INPUT and PARSE are
// not retryable: a resumed video failed with one of those stays FAILED
// until a forced rerun.
func IsRetryable(t ErrorType) bool {
	return retryable[t]
}

// AppError carries a classified ErrorType, a human message, optional
// structured details, and the underlying error it wraps.
type AppError struct {
	Type    ErrorType              `json:"error_type"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Err     error                  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetails attaches structured details and returns the receiver.
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

// Retryable reports whether this error's type is retryable.
func (e *AppError) Retryable() bool {
	return IsRetryable(e.Type)
}

// New creates an AppError of the given type.
func New(t ErrorType, message string) *AppError {
	return &AppError{Type: t, Message: message}
}

// Wrap wraps an existing error with a classified AppError.
func Wrap(t ErrorType, message string, err error) *AppError {
	return &AppError{Type: t, Message: message, Err: err}
}

// As extracts an *AppError from err, classifying it as UNKNOWN if err is
// not already an *AppError.
func As(err error) *AppError {
	if err == nil {
		return nil
	}
	if ae, ok := err.(*AppError); ok {
		return ae
	}
	return &AppError{Type: Unknown, Message: err.Error(), Err: err}
}

// Common constructors, mirroring the single-classification-point pattern
// each external boundary uses (§4.10).
func NetworkErr(message string, err error) *AppError { return Wrap(Network, message, err) }
func TimeoutErr(message string, err error) *AppError { return Wrap(Timeout, message, err) }
func RateLimitErr(message string, err error) *AppError {
	return Wrap(RateLimit, message, err)
}
func AuthErr(message string, err error) *AppError { return Wrap(Auth, message, err) }
func ContentErr(message string) *AppError         { return New(Content, message) }
func FileIOErr(message string, err error) *AppError {
	return Wrap(FileIO, message, err)
}
func ParseErr(message string, err error) *AppError { return Wrap(Parse, message, err) }
func InvalidInputErr(message string) *AppError     { return New(InvalidInput, message) }
func CancelledErr(reason string) *AppError         { return New(Cancelled, reason) }
func ExternalServiceErr(message string, err error) *AppError {
	return Wrap(ExternalService, message, err)
}
func UnknownErr(message string, err error) *AppError { return Wrap(Unknown, message, err) }
