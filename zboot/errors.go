package zboot

import "fmt"

// Error values for launch operations. Every category is fatal: the launcher
// aborts the whole process on any of them, there is no retry path.
var (
	// ErrLocate is returned when the launcher's own file cannot be opened,
	// stat'ed or mapped while looking for a trailing payload.
	ErrLocate = &LaunchError{Code: "LOCATE_FAILED", Message: "failed to locate payload"}

	// ErrPayloadTruncated is returned when the payload is shorter than its
	// header declares.
	ErrPayloadTruncated = &LaunchError{Code: "PAYLOAD_TRUNCATED", Message: "payload shorter than header declares"}

	// ErrPayloadInvalid is returned when the header itself is malformed.
	ErrPayloadInvalid = &LaunchError{Code: "PAYLOAD_INVALID", Message: "invalid payload header"}

	// ErrDecompress is returned when a part fails to decompress or produces
	// a size that does not match its declared output size.
	ErrDecompress = &LaunchError{Code: "DECOMPRESS_FAILED", Message: "failed to decompress payload part"}

	// ErrMemExecutable is returned when the memory-backed executable cannot
	// be created, sized or mapped.
	ErrMemExecutable = &LaunchError{Code: "MEMFD_FAILED", Message: "failed to prepare memory-backed executable"}

	// ErrExec is returned when the final image replacement call returns.
	ErrExec = &LaunchError{Code: "EXEC_FAILED", Message: "failed to execute memory-backed image"}
)

// LaunchError is a structured error carrying a stable code for the failing
// step plus optional cause and context details.
type LaunchError struct {
	Code    string
	Message string
	Cause   error
	Details map[string]interface{}
}

// Error implements the error interface.
func (e *LaunchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	if len(e.Details) > 0 {
		return fmt.Sprintf("[%s] %s (details: %v)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *LaunchError) Unwrap() error {
	return e.Cause
}

// Is matches two LaunchErrors by code, so errors.Is works on derived errors.
func (e *LaunchError) Is(target error) bool {
	t, ok := target.(*LaunchError)
	return ok && t.Code == e.Code
}

// WithCause returns a copy of the error with an underlying cause attached.
func (e *LaunchError) WithCause(cause error) *LaunchError {
	return &LaunchError{
		Code:    e.Code,
		Message: e.Message,
		Cause:   cause,
		Details: e.Details,
	}
}

// WithDetail returns a copy of the error with an added context detail.
func (e *LaunchError) WithDetail(key string, value interface{}) *LaunchError {
	details := make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &LaunchError{
		Code:    e.Code,
		Message: e.Message,
		Cause:   e.Cause,
		Details: details,
	}
}

// WithMessage returns a copy of the error with the message replaced.
func (e *LaunchError) WithMessage(message string) *LaunchError {
	return &LaunchError{
		Code:    e.Code,
		Message: message,
		Cause:   e.Cause,
		Details: e.Details,
	}
}

// ErrorCode extracts the code from a LaunchError, or "" for foreign errors.
func ErrorCode(err error) string {
	if launchErr, ok := err.(*LaunchError); ok {
		return launchErr.Code
	}
	return ""
}
