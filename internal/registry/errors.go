package registry

import "fmt"

// Failure classes for the install pipeline. All are fatal; the one
// self-healing path (a corrupt installed module) never surfaces as an error
// because the orchestrator repairs it in place.
var (
	ErrRegistry   = fmt.Errorf("registry request failed")
	ErrIntegrity  = fmt.Errorf("archive integrity mismatch")
	ErrResolution = fmt.Errorf("no satisfying version")
	ErrExtraction = fmt.Errorf("archive extraction failed")
	ErrFilesystem = fmt.Errorf("filesystem operation failed")
)

// Error wraps a failure class with context about the failing package.
type Error struct {
	Type    error
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%v: %s", e.Type, e.Message)
	}
	return e.Type.Error()
}

func (e *Error) Unwrap() error {
	return e.Type
}

// NewError creates a new classified error
func NewError(errType error, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
	}
}
