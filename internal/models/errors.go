package models

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Error codes returned in API error bodies.
const (
	CodeDuplicateEmail      = "DUPLICATE_EMAIL"
	CodeInvalidCredentials  = "INVALID_CREDENTIALS"
	CodeNoFile              = "NO_FILE"
	CodeDisallowedExtension = "DISALLOWED_EXTENSION"
	CodeNotFound            = "NOT_FOUND"
	CodeSessionRequired     = "SESSION_REQUIRED"
	CodeValidation          = "VALIDATION_ERROR"
	CodeRateLimited         = "RATE_LIMITED"
	CodeUnavailable         = "SERVICE_UNAVAILABLE"
	CodeInternal            = "INTERNAL_ERROR"
)

// Sentinel errors wrapped by AppError so callers can match with errors.Is.
var (
	ErrDuplicateEmail      = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrNoFileProvided      = errors.New("no file provided")
	ErrDisallowedExtension = errors.New("file extension not allowed")
	ErrNotFound            = errors.New("not found")
	ErrSessionRequired     = errors.New("session required")
)

// ErrorResponse represents a standardized API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewDuplicateEmailError reports a registration against an email that is already taken.
func NewDuplicateEmailError(email string) *AppError {
	return &AppError{
		Code:    CodeDuplicateEmail,
		Message: fmt.Sprintf("Email %s is already registered", email),
		Err:     ErrDuplicateEmail,
	}
}

func NewInvalidCredentialsError() *AppError {
	return &AppError{
		Code:    CodeInvalidCredentials,
		Message: "Invalid email or password",
		Err:     ErrInvalidCredentials,
	}
}

func NewNoFileError() *AppError {
	return &AppError{
		Code:    CodeNoFile,
		Message: "No file provided",
		Err:     ErrNoFileProvided,
	}
}

func NewDisallowedExtensionError(filename string) *AppError {
	return &AppError{
		Code:    CodeDisallowedExtension,
		Message: fmt.Sprintf("File type of %q is not allowed (pdf, png, jpg, jpeg)", filename),
		Err:     ErrDisallowedExtension,
	}
}

func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s %v not found", resource, id),
		Err:     ErrNotFound,
	}
}

func NewSessionRequiredError() *AppError {
	return &AppError{
		Code:    CodeSessionRequired,
		Message: "Login required",
		Err:     ErrSessionRequired,
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
	}
}

// NewRateLimitedError reports a request over its limit; retryAfter is rounded up to whole seconds.
func NewRateLimitedError(retryAfter int) *AppError {
	return &AppError{
		Code:    CodeRateLimited,
		Message: fmt.Sprintf("Too many attempts, try again in %d seconds", retryAfter),
	}
}

func NewUnavailableError(what string, err error) *AppError {
	return &AppError{
		Code:    CodeUnavailable,
		Message: fmt.Sprintf("%s is temporarily unavailable", what),
		Err:     err,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "Internal server error",
		Err:     err,
	}
}

// RespondWithError creates a standardized error response
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	var response ErrorResponse

	var appErr *AppError
	if errors.As(err, &appErr) {
		response = ErrorResponse{
			Error: appErr.Message,
			Code:  appErr.Code,
		}
		// Internal details never leave the process.
		if appErr.Err != nil && appErr.Code != CodeInternal {
			response.Details = appErr.Err.Error()
		}
	} else {
		response = ErrorResponse{
			Error: err.Error(),
		}
	}

	return c.Status(status).JSON(response)
}
