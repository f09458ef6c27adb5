package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorType represents the pipeline stage an error belongs to
type ErrorType string

const (
	// ErrTypeValidation represents a rejected client request
	ErrTypeValidation ErrorType = "validation"
	// ErrTypeResolution represents a failed title lookup
	ErrTypeResolution ErrorType = "resolution"
	// ErrTypeAcquisition represents a failed audio extraction
	ErrTypeAcquisition ErrorType = "acquisition"
	// ErrTypeDelivery represents a failure while streaming the artifact
	ErrTypeDelivery ErrorType = "delivery"
	// ErrTypeFileSystem represents scratch storage errors
	ErrTypeFileSystem ErrorType = "filesystem"
	// ErrTypeUnknown represents unknown errors
	ErrTypeUnknown ErrorType = "unknown"
)

// Reason narrows an ErrorType down to a specific failure
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonMissingURL        Reason = "missing_url"
	ReasonInvalidBody       Reason = "invalid_body"
	ReasonExhaustedProfiles Reason = "exhausted_profiles"
	ReasonCancelled         Reason = "cancelled"
	ReasonArtifactMissing   Reason = "artifact_missing"
	ReasonStreamFailed      Reason = "stream_failed"
)

// Client-facing messages. Nothing more specific than these ever leaves the process.
const (
	MsgMissingURL  = "Missing URL"
	MsgInvalidBody = "Invalid request body"
	MsgResolution  = "Failed to get video title"
	MsgAcquisition = "Download failed"
	MsgDelivery    = "Error streaming file"
	MsgInternal    = "Internal server error"
)

// AppError represents an application error with context.
//
// Message is safe to show to a client. Cause carries the diagnostic detail
// (attempt list, extractor stderr) and is meant for logs only.
type AppError struct {
	Type       ErrorType
	Reason     Reason
	Message    string
	StatusCode int
	Retryable  bool
	TimedOut   bool
	Cause      error
}

// Error implements the error interface
func (e *AppError) Error() string {
	label := string(e.Type)
	if e.Reason != ReasonNone {
		label = fmt.Sprintf("%s/%s", e.Type, e.Reason)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", label, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", label, e.Message)
}

// Unwrap returns the underlying cause
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches another *AppError on Type, and on Reason when the target sets one.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	if t.Type != e.Type {
		return false
	}
	return t.Reason == ReasonNone || t.Reason == e.Reason
}

// Sentinels for errors.Is checks.
var (
	ErrValidation           = &AppError{Type: ErrTypeValidation}
	ErrResolutionExhausted  = &AppError{Type: ErrTypeResolution, Reason: ReasonExhaustedProfiles}
	ErrAcquisitionExhausted = &AppError{Type: ErrTypeAcquisition, Reason: ReasonExhaustedProfiles}
	ErrArtifactMissing      = &AppError{Type: ErrTypeAcquisition, Reason: ReasonArtifactMissing}
	ErrDelivery             = &AppError{Type: ErrTypeDelivery}
)

// NewValidationError creates a new validation error
func NewValidationError(reason Reason, message string) *AppError {
	return &AppError{
		Type:       ErrTypeValidation,
		Reason:     reason,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Retryable:  false,
	}
}

// NewMissingURLError creates the error for a request without a usable url
func NewMissingURLError() *AppError {
	return NewValidationError(ReasonMissingURL, MsgMissingURL)
}

// NewResolutionError wraps a failed title fallback chain
func NewResolutionError(cause error) *AppError {
	return &AppError{
		Type:       ErrTypeResolution,
		Reason:     reasonFromChain(cause),
		Message:    MsgResolution,
		StatusCode: http.StatusInternalServerError,
		Retryable:  false,
		TimedOut:   timedOutChain(cause),
		Cause:      cause,
	}
}

// NewAcquisitionError wraps a failed extraction fallback chain
func NewAcquisitionError(cause error) *AppError {
	return &AppError{
		Type:       ErrTypeAcquisition,
		Reason:     reasonFromChain(cause),
		Message:    MsgAcquisition,
		StatusCode: http.StatusInternalServerError,
		Retryable:  false,
		TimedOut:   timedOutChain(cause),
		Cause:      cause,
	}
}

// NewArtifactMissingError reports an extractor run that claimed success but left no file
func NewArtifactMissingError(path string, cause error) *AppError {
	return &AppError{
		Type:       ErrTypeAcquisition,
		Reason:     ReasonArtifactMissing,
		Message:    MsgAcquisition,
		StatusCode: http.StatusInternalServerError,
		Retryable:  false,
		Cause:      fmt.Errorf("artifact %s not found: %w", path, cause),
	}
}

// NewDeliveryError creates a new delivery error
func NewDeliveryError(cause error) *AppError {
	return &AppError{
		Type:       ErrTypeDelivery,
		Reason:     ReasonStreamFailed,
		Message:    MsgDelivery,
		StatusCode: http.StatusInternalServerError,
		Retryable:  false,
		Cause:      cause,
	}
}

// NewFileSystemError creates a new file system error
func NewFileSystemError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrTypeFileSystem,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Retryable:  true,
		Cause:      cause,
	}
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Retryable
	}
	return false
}

// GetErrorType returns the error type from an error
func GetErrorType(err error) ErrorType {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrTypeUnknown
}

// GetReason returns the reason from an error
func GetReason(err error) Reason {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Reason
	}
	return ReasonNone
}

// StatusCode returns the HTTP status to answer with for err
func StatusCode(err error) int {
	var appErr *AppError
	if stderrors.As(err, &appErr) && appErr.StatusCode != 0 {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

// PublicMessage returns the client-safe message for err
func PublicMessage(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) && appErr.Message != "" {
		switch appErr.Type {
		case ErrTypeFileSystem, ErrTypeUnknown:
			return MsgInternal
		}
		return appErr.Message
	}
	return MsgInternal
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return GetErrorType(err) == ErrTypeValidation
}

// IsCancelled checks if an error came from a chain stopped by its caller
func IsCancelled(err error) bool {
	return GetReason(err) == ReasonCancelled
}

func reasonFromChain(cause error) Reason {
	var fe *FallbackError
	if stderrors.As(cause, &fe) && fe.Cancelled {
		return ReasonCancelled
	}
	return ReasonExhaustedProfiles
}

func timedOutChain(cause error) bool {
	var fe *FallbackError
	if stderrors.As(cause, &fe) {
		return fe.AllTimedOut()
	}
	return false
}
