// Package apperr defines the error kinds the platform surfaces to users:
// bad input shape, duplicate identity, bad credentials, and storage faults.
// Every error is recoverable at the call site; none crashes a session.
package apperr

import "fmt"

// Validation codes returned to the client alongside a ValidationError.
const (
	CodeMissingField       = "missing-field"
	CodeInvalidEmail       = "invalid-email"
	CodeWeakPassword       = "weak-password"
	CodeMismatch           = "mismatch"
	CodeMissingCredentials = "missing-credentials"
)

// ValidationError signals input of the wrong shape. The user corrects
// and resubmits.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed (%s): %s", e.Code, e.Message)
}

// NewValidation creates a ValidationError with a stable code.
func NewValidation(code, message string) *ValidationError {
	return &ValidationError{Code: code, Message: message}
}

// ConflictError signals a duplicate identity (username or email already taken).
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return "duplicate-user: " + e.Message
}

// NewConflict creates a ConflictError.
func NewConflict(message string) *ConflictError {
	return &ConflictError{Message: message}
}

// AuthError signals failed authentication. The message is deliberately
// generic so a caller cannot tell an unknown user from a wrong password.
type AuthError struct{}

func (e *AuthError) Error() string {
	return "invalid username or password"
}

// NewAuth creates an AuthError.
func NewAuth() *AuthError {
	return &AuthError{}
}

// StorageError wraps a fault in the backing store. The requested operation
// fails with a generic diagnostic; the underlying cause goes to the logs only.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorage wraps err as a StorageError for operation op.
func NewStorage(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}
