package schema_registry

import (
	"errors"
	"fmt"
	"net/http"
)

// LocalErrorStatus is the StatusCode of errors that did not come from a registry response.
const LocalErrorStatus = -1

var (
	// ErrNotFound matches, through errors.Is, any RegistryError with status 404.
	ErrNotFound = errors.New("schema registry: not found")

	// ErrInvalidCompatibilityLevel is wrapped by the error UpdateCompatibility returns
	// for levels outside NONE, FULL, FORWARD and BACKWARD.
	ErrInvalidCompatibilityLevel = errors.New("schema registry: invalid compatibility level")

	// ErrMalformedSchema is wrapped when schema text returned by the registry cannot be parsed.
	ErrMalformedSchema = errors.New("received malformed schema from registry")
)

// Registry error codes, as returned in the error_code field.
const (
	ErrorCodeSubjectNotFound      = 40401
	ErrorCodeVersionNotFound      = 40402
	ErrorCodeSchemaNotFound       = 40403
	ErrorCodeIncompatibleSchema   = 40901
	ErrorCodeInvalidSchema        = 42201
	ErrorCodeInvalidVersion       = 42202
	ErrorCodeInvalidCompatibility = 42203
	ErrorCodeBackendStore         = 50001
)

// RegistryError describes a failed registry operation.
type RegistryError struct {
	// StatusCode is the HTTP status, or LocalErrorStatus for transport and
	// client side failures.
	StatusCode int

	// ErrorCode is the registry's error_code, 0 when absent.
	ErrorCode int

	// Message is the registry's message or a local description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

func (e *RegistryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("schema registry error (%d): %s: %v", e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("schema registry error (%d): %s", e.StatusCode, e.Message)
}

func (e *RegistryError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrNotFound) true for 404 responses and
// errors.Is(err, ErrMalformedSchema) true for unparseable registry schemas.
func (e *RegistryError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrMalformedSchema:
		return e.StatusCode == LocalErrorStatus && e.Message == ErrMalformedSchema.Error()
	}
	return false
}

// IsNotFound reports whether err is a registry 404.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// StatusCode returns the HTTP status carried by err, LocalErrorStatus if err is
// not a RegistryError.
func StatusCode(err error) int {
	var regErr *RegistryError
	if errors.As(err, &regErr) {
		return regErr.StatusCode
	}
	return LocalErrorStatus
}

func localError(message string, err error) *RegistryError {
	return &RegistryError{StatusCode: LocalErrorStatus, Message: message, Err: err}
}

func malformedSchemaError(err error) *RegistryError {
	return localError(ErrMalformedSchema.Error(), err)
}

func notFoundError(code int, message string) *RegistryError {
	return &RegistryError{StatusCode: http.StatusNotFound, ErrorCode: code, Message: message}
}

// The constructors below build the errors a registry backend returns. They
// are shared by the gateways that implement the registry locally.

// NewSubjectNotFoundError returns the 404/40401 error for subject.
func NewSubjectNotFoundError(subject string) *RegistryError {
	return notFoundError(ErrorCodeSubjectNotFound, "Subject '"+subject+"' not found.")
}

// NewVersionNotFoundError returns the 404/40402 error for version.
func NewVersionNotFoundError(version string) *RegistryError {
	return notFoundError(ErrorCodeVersionNotFound, "Version "+version+" not found.")
}

// NewSchemaNotFoundError returns the 404/40403 error.
func NewSchemaNotFoundError(message string) *RegistryError {
	return notFoundError(ErrorCodeSchemaNotFound, message)
}

// NewIncompatibleSchemaError returns the 409/40901 error wrapping the reason.
func NewIncompatibleSchemaError(err error) *RegistryError {
	return &RegistryError{
		StatusCode: http.StatusConflict,
		ErrorCode:  ErrorCodeIncompatibleSchema,
		Message:    "Schema being registered is incompatible with an earlier schema",
		Err:        err,
	}
}

// NewInvalidSchemaError returns the 422/42201 error wrapping the parse failure.
func NewInvalidSchemaError(err error) *RegistryError {
	return &RegistryError{
		StatusCode: http.StatusUnprocessableEntity,
		ErrorCode:  ErrorCodeInvalidSchema,
		Message:    "Invalid schema",
		Err:        err,
	}
}

// NewInvalidCompatibilityError returns the 422/42203 error.
func NewInvalidCompatibilityError() *RegistryError {
	return &RegistryError{
		StatusCode: http.StatusUnprocessableEntity,
		ErrorCode:  ErrorCodeInvalidCompatibility,
		Message:    "Invalid compatibility level",
	}
}

// NewBackendStoreError returns the 500/50001 error a store reports when its
// storage fails.
func NewBackendStoreError(err error) *RegistryError {
	return &RegistryError{
		StatusCode: http.StatusInternalServerError,
		ErrorCode:  ErrorCodeBackendStore,
		Message:    "Error in the backend data store",
		Err:        err,
	}
}
