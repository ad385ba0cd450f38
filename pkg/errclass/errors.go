package errclass

import "fmt"

// Error is a stable, machine-readable error class.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e.Code == t.Code
}

// WithMessage returns a new Error with the same Code but a specific message.
func (e *Error) WithMessage(msg string) *Error {
	return &Error{Code: e.Code, Message: msg}
}

// WithMessagef returns a new Error with a formatted message.
func (e *Error) WithMessagef(format string, args ...any) *Error {
	return &Error{Code: e.Code, Message: fmt.Sprintf(format, args...)}
}

// All stable error classes.
var (
	ErrNameInvalid            = &Error{Code: "E_NAME_INVALID"}
	ErrMalformedArtifactName  = &Error{Code: "E_MALFORMED_ARTIFACT_NAME"}
	ErrDuplicateArtifact      = &Error{Code: "E_DUPLICATE_ARTIFACT"}
	ErrRepositoryInconsistent = &Error{Code: "E_REPO_INCONSISTENT"}
	ErrNoMatchingArtifact     = &Error{Code: "E_NO_MATCHING_ARTIFACT"}
	ErrNoMatchingTarget       = &Error{Code: "E_NO_MATCHING_TARGET"}
	ErrMalformedRequirement   = &Error{Code: "E_MALFORMED_REQUIREMENT"}
	ErrTransportFailure       = &Error{Code: "E_TRANSPORT_FAILURE"}
	ErrInstallFailure         = &Error{Code: "E_INSTALL_FAILURE"}
	ErrMigrationFailure       = &Error{Code: "E_MIGRATION_FAILURE"}
	ErrReloadFailure          = &Error{Code: "E_RELOAD_FAILURE"}
)
