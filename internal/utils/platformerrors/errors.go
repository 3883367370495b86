package platformerrors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type requestIDKey struct{}

// ContextWithRequestID stores the request id so errors created downstream can carry it.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func getRequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if requestID, ok := ctx.Value(requestIDKey{}).(string); ok {
		return requestID
	}
	return ""
}

// ErrorType represents the category of error. The set is closed.
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION"
	ErrorTypePersistence  ErrorType = "PERSISTENCE"
	ErrorTypeAIResponse   ErrorType = "AI_RESPONSE"
	ErrorTypeAuth         ErrorType = "AUTH"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeInternal     ErrorType = "INTERNAL"
)

// Reason narrows an ErrorType to the specific failure kind.
type Reason string

const (
	ReasonNone Reason = ""

	// validation
	ReasonEmptyInput   Reason = "empty_input"
	ReasonInvalidTitle Reason = "invalid_title"
	ReasonInvalidEmail Reason = "invalid_email"
	ReasonWeakPassword Reason = "weak_password"

	// persistence
	ReasonDenied      Reason = "denied"
	ReasonRejected    Reason = "rejected"
	ReasonUnavailable Reason = "unavailable"

	// ai response
	ReasonTimeout     Reason = "timeout"
	ReasonUnreachable Reason = "unreachable"
	ReasonBadStatus   Reason = "bad_status"
	ReasonMalformed   Reason = "malformed"
	ReasonEmptyReply  Reason = "empty_reply"

	// auth
	ReasonInvalidCredentials Reason = "invalid_credentials"
	ReasonUnverified         Reason = "unverified"
	ReasonDuplicate          Reason = "duplicate"
	ReasonAlreadyVerified    Reason = "already_verified"
	ReasonDisabled           Reason = "disabled"
	ReasonInvalidToken       Reason = "invalid_token"

	// conflict
	ReasonBusy Reason = "interaction_in_progress"
)

// Layer represents the application layer where the error occurred
type Layer string

const (
	LayerRepository     Layer = "repository"
	LayerDomain         Layer = "domain"
	LayerHandler        Layer = "handler"
	LayerRoute          Layer = "route"
	LayerInfrastructure Layer = "infrastructure"
)

// PlatformError represents an error with context and metadata
type PlatformError struct {
	UUID      string
	Type      ErrorType
	Reason    Reason
	Message   string
	Err       error
	Context   map[string]any
	RequestID string
	Layer     Layer
	Timestamp time.Time
}

// Error implements the error interface
func (e *PlatformError) Error() string {
	kind := string(e.Type)
	if e.Reason != ReasonNone {
		kind += "/" + string(e.Reason)
	}
	if e.Err != nil {
		return fmt.Sprintf("[%s][%s][%s] %s: %v", e.Layer, kind, e.UUID, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s][%s][%s] %s", e.Layer, kind, e.UUID, e.Message)
}

// Unwrap returns the underlying error
func (e *PlatformError) Unwrap() error {
	return e.Err
}

// GetErrorType returns the error type
func (e *PlatformError) GetErrorType() ErrorType {
	return e.Type
}

// GetReason returns the error reason
func (e *PlatformError) GetReason() Reason {
	return e.Reason
}

// GetRequestID returns the request ID
func (e *PlatformError) GetRequestID() string {
	return e.RequestID
}

// GetUUID returns the error UUID
func (e *PlatformError) GetUUID() string {
	return e.UUID
}

// NewError creates a new PlatformError without a reason.
func NewError(ctx context.Context, layer Layer, errorType ErrorType, message string, err error) *PlatformError {
	return NewErrorWithReason(ctx, layer, errorType, ReasonNone, message, err)
}

// NewErrorWithReason creates a new PlatformError carrying a reason.
func NewErrorWithReason(ctx context.Context, layer Layer, errorType ErrorType, reason Reason, message string, err error) *PlatformError {
	return &PlatformError{
		UUID:      uuid.NewString(),
		Type:      errorType,
		Reason:    reason,
		Message:   message,
		Err:       err,
		RequestID: getRequestIDFromContext(ctx),
		Layer:     layer,
		Timestamp: time.Now().UTC(),
		Context:   map[string]any{},
	}
}

// WithContext attaches a structured field to the error.
func (e *PlatformError) WithContext(key string, value any) *PlatformError {
	e.Context[key] = value
	return e
}

// AsError wraps an error with layer context, keeping type and reason of platform errors.
func AsError(ctx context.Context, layer Layer, err error, message string) *PlatformError {
	if err == nil {
		return nil
	}

	var platformErr *PlatformError
	if errors.As(err, &platformErr) {
		wrapped := NewErrorWithReason(ctx, layer, platformErr.Type, platformErr.Reason, fmt.Sprintf("%s: %s", message, platformErr.Message), platformErr)
		wrapped.UUID = platformErr.UUID
		return wrapped
	}

	return NewError(ctx, layer, ErrorTypeInternal, message, err)
}

// ErrorTypeToHTTPStatus maps error types to HTTP status codes
func ErrorTypeToHTTPStatus(errorType ErrorType) int {
	switch errorType {
	case ErrorTypeValidation:
		return http.StatusBadRequest
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeConflict:
		return http.StatusConflict
	case ErrorTypeAuth, ErrorTypeUnauthorized:
		return http.StatusUnauthorized
	case ErrorTypePersistence, ErrorTypeAIResponse:
		return http.StatusBadGateway
	case ErrorTypeInternal:
		fallthrough
	default:
		return http.StatusInternalServerError
	}
}

// HTTPStatus refines ErrorTypeToHTTPStatus with the reason.
func HTTPStatus(err *PlatformError) int {
	switch err.Reason {
	case ReasonTimeout:
		return http.StatusGatewayTimeout
	case ReasonDuplicate:
		return http.StatusConflict
	case ReasonUnverified, ReasonDisabled:
		return http.StatusForbidden
	case ReasonDenied:
		return http.StatusForbidden
	}
	return ErrorTypeToHTTPStatus(err.Type)
}

// IsErrorType checks if an error is a PlatformError with the specified type
func IsErrorType(err error, errorType ErrorType) bool {
	var platformErr *PlatformError
	if errors.As(err, &platformErr) {
		return platformErr.Type == errorType
	}
	return false
}

// HasReason checks if an error is a PlatformError with the specified reason
func HasReason(err error, reason Reason) bool {
	var platformErr *PlatformError
	if errors.As(err, &platformErr) {
		return platformErr.Reason == reason
	}
	return false
}

// LogError logs a platform error with proper structure
func LogError(logger zerolog.Logger, err *PlatformError) {
	if err == nil {
		return
	}

	event := logger.Error().
		Str("error_uuid", err.UUID).
		Str("error_type", string(err.Type)).
		Str("layer", string(err.Layer)).
		Time("timestamp_utc", err.Timestamp)

	if err.Reason != ReasonNone {
		event = event.Str("reason", string(err.Reason))
	}
	if err.RequestID != "" {
		event = event.Str("request_id", err.RequestID)
	}

	for k, v := range err.Context {
		event = event.Interface(k, v)
	}

	if err.Err != nil {
		event = event.Err(err.Err)
	}

	event.Msg(err.Message)
}
