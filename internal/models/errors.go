package models

import (
	"errors"
	"fmt"
	"maps"
	"net/http"
	"sort"
	"strings"
)

// Error codes returned in the "code" field of API error bodies.
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeDuplicatePhone     = "DUPLICATE_PHONE"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeNotFound           = "NOT_FOUND"
	CodeDuplicateVote      = "DUPLICATE_VOTE"
	CodeInvalidChoice      = "INVALID_CHOICE"
	CodeUpstreamFailure    = "UPSTREAM_FAILURE"
	CodeRateLimited        = "RATE_LIMITED"
	CodeInternal           = "INTERNAL_ERROR"
)

// ErrorResponse represents a standardized API error response
type ErrorResponse struct {
	Error  string            `json:"error"`
	Code   string            `json:"code,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	Err     error
	// Fields carries per-field validation detail.
	Fields map[string]string
	// Status overrides the default HTTP status for the code when non-zero.
	Status int
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

// HTTPStatus maps the error code onto a response status.
func (e *AppError) HTTPStatus() int {
	if e.Status != 0 {
		return e.Status
	}
	switch e.Code {
	case CodeValidation, CodeInvalidChoice:
		return http.StatusBadRequest
	case CodeInvalidCredentials, CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeDuplicatePhone, CodeDuplicateVote:
		return http.StatusConflict
	case CodeUpstreamFailure:
		return http.StatusBadGateway
	case CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Response builds the JSON body for the error. Internal causes are not exposed.
func (e *AppError) Response() ErrorResponse {
	return ErrorResponse{Error: e.Message, Code: e.Code, Fields: e.Fields}
}

// IsCode reports whether err is an *AppError carrying code.
func IsCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// Predefined error constructors
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
	}
}

// NewFieldValidationError reports one or more invalid input fields.
func NewFieldValidationError(fields map[string]string) *AppError {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return &AppError{
		Code:    CodeValidation,
		Message: "Invalid fields: " + strings.Join(names, ", "),
		Fields:  maps.Clone(fields),
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
	}
}

func NewInvalidCredentialsError() *AppError {
	return &AppError{
		Code:    CodeInvalidCredentials,
		Message: "Invalid credentials",
	}
}

func NewForbiddenError() *AppError {
	return &AppError{
		Code:    CodeForbidden,
		Message: "Forbidden",
	}
}

func NewDuplicatePhoneError() *AppError {
	return &AppError{
		Code:    CodeDuplicatePhone,
		Message: "Phone number already registered",
		Fields:  map[string]string{"phone": "already registered"},
	}
}

func NewDuplicateVoteError() *AppError {
	return &AppError{
		Code:    CodeDuplicateVote,
		Message: "You have already voted on this poll",
	}
}

func NewInvalidChoiceError() *AppError {
	return &AppError{
		Code:    CodeInvalidChoice,
		Message: "Choice does not belong to this poll",
	}
}

// NewUpstreamError wraps a failed call to an external data provider.
// status is the upstream HTTP status when one was received.
func NewUpstreamError(service string, status int, err error) *AppError {
	msg := fmt.Sprintf("%s service unavailable", service)
	if status > 0 {
		msg = fmt.Sprintf("%s service returned status %d", service, status)
	}
	return &AppError{
		Code:    CodeUpstreamFailure,
		Message: msg,
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

func NewRateLimitedError() *AppError {
	return &AppError{
		Code:    CodeRateLimited,
		Message: "Too many requests, please try again later",
	}
}
