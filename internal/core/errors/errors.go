package errors

import (
	"errors"
	"fmt"
)

// Domain errors - these represent business rule violations
var (
	// Authentication & Authorization
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrNotAuthenticated     = errors.New("not authenticated")
	ErrAccessDenied         = errors.New("access denied")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrActingUserRequired   = errors.New("support identity requires an acting user id")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrForbidden            = errors.New("action forbidden")

	// Subscription
	ErrInvalidStreamType = errors.New("invalid stream type")
	ErrTicketIDRequired  = errors.New("ticket ID is required")
	ErrUserIDRequired    = errors.New("user ID is required")

	// Tickets & messages
	ErrTicketNotFound      = errors.New("ticket not found")
	ErrTicketClosed        = errors.New("ticket is closed")
	ErrTicketNotOpen       = errors.New("ticket is not open")
	ErrInvalidStatus       = errors.New("invalid ticket status")
	ErrInvalidSenderType   = errors.New("invalid sender type")
	ErrMessageBodyRequired = errors.New("message content is required")
	ErrMessageBodyTooLong  = errors.New("message content exceeds maximum length")

	// Support agents
	ErrSupportAgentNotFound = errors.New("support agent not found")
	ErrEmailRequired        = errors.New("email is required")
	ErrPasswordRequired     = errors.New("password is required")

	// Realtime delivery
	ErrTransportClosed    = errors.New("transport closed")
	ErrSendBufferFull     = errors.New("send buffer full")
	ErrRegistryClosed     = errors.New("registry is shut down")
	ErrUnknownConnection  = errors.New("unknown connection")
	ErrInvalidEvent       = errors.New("invalid event")
	ErrPushNotConfigured  = errors.New("push transport not configured")
	ErrInvalidChannelName = errors.New("invalid channel name")

	// Generic
	ErrNotFound    = errors.New("resource not found")
	ErrInternal    = errors.New("internal server error")
	ErrBadRequest  = errors.New("bad request")
	ErrRateLimited = errors.New("rate limit exceeded")
)

// QueryError marks a transient store failure. Pollers report it to the room
// and retry on the next tick.
type QueryError struct {
	Op  string
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query %s: %v", e.Op, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// NewQueryError wraps err as a transient query failure for op.
func NewQueryError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &QueryError{Op: op, Err: err}
}

// IsTransient reports whether err is a retryable store failure.
func IsTransient(err error) bool {
	var qe *QueryError
	return errors.As(err, &qe)
}

// AppError wraps errors with additional context for HTTP responses
type AppError struct {
	Err        error  // The underlying error
	Message    string // User-friendly message
	Code       string // Machine-readable error code
	StatusCode int    // HTTP status code
	Details    map[string]interface{}
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Error constructors for common cases
func NewBadRequestError(err error, message string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "BAD_REQUEST",
		StatusCode: 400,
	}
}

func NewNotFoundError(err error, message string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "NOT_FOUND",
		StatusCode: 404,
	}
}

// ValidationErrors holds multiple field validation errors
type ValidationErrors struct {
	Errors map[string][]string `json:"errors"`
}

func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{
		Errors: make(map[string][]string),
	}
}

func (v *ValidationErrors) Add(field, message string) {
	v.Errors[field] = append(v.Errors[field], message)
}

func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

func (v *ValidationErrors) Error() string {
	return fmt.Sprintf("validation failed: %d field(s) have errors", len(v.Errors))
}
