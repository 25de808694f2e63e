package schema

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest indicates a malformed tool argument.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInvalidMode indicates an unsupported view mode.
	ErrInvalidMode = errors.New("invalid mode")
	// ErrInvalidBox indicates an ill-formed bounding box.
	ErrInvalidBox = errors.New("invalid bounding box")
	// ErrInvalidCharacter indicates a locate character that is not exactly one character.
	ErrInvalidCharacter = errors.New("character must be exactly one character")
	// ErrInvalidLimit indicates a non-positive locate limit.
	ErrInvalidLimit = errors.New("limit must be a positive integer")
	// ErrNoSession indicates no session is active.
	ErrNoSession = errors.New("no active session")
	// ErrSessionActive indicates a session is already running.
	ErrSessionActive = errors.New("session already active")
	// ErrSessionClosed indicates the session process has exited.
	ErrSessionClosed = errors.New("session closed")
	// ErrUnknownTool indicates an operation name outside the catalog.
	ErrUnknownTool = errors.New("unknown tool")
	// ErrBackendUnavailable indicates the configured backend cannot run.
	ErrBackendUnavailable = errors.New("backend unavailable")
)

// ErrorKind classifies a tool failure.
type ErrorKind string

const (
	// KindValidation marks malformed or out-of-range arguments.
	KindValidation ErrorKind = "validation"
	// KindBackend marks a failed session backend call.
	KindBackend ErrorKind = "backend"
	// KindDispatch marks an operation name that is not in the catalog.
	KindDispatch ErrorKind = "dispatch"
)

// ToolError carries a failure message and its kind.
type ToolError struct {
	Kind ErrorKind
	Err  error
}

func (e *ToolError) Error() string {
	if e == nil || e.Err == nil {
		return string(e.kind())
	}
	return e.Err.Error()
}

func (e *ToolError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *ToolError) kind() ErrorKind {
	if e == nil {
		return ""
	}
	return e.Kind
}

// Validation wraps err as a validation failure.
func Validation(err error) error {
	return &ToolError{Kind: KindValidation, Err: err}
}

// Validationf formats a validation failure that wraps ErrInvalidRequest.
func Validationf(format string, args ...any) error {
	return Validation(fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...)))
}

// Backend wraps err as a backend failure.
func Backend(err error) error {
	return &ToolError{Kind: KindBackend, Err: err}
}

// KindOf reports the failure kind of err. Unclassified errors are backend failures.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var te *ToolError
	if errors.As(err, &te) && te.Kind != "" {
		return te.Kind
	}
	switch {
	case errors.Is(err, ErrUnknownTool):
		return KindDispatch
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, ErrInvalidMode),
		errors.Is(err, ErrInvalidBox),
		errors.Is(err, ErrInvalidCharacter),
		errors.Is(err, ErrInvalidLimit):
		return KindValidation
	default:
		return KindBackend
	}
}
