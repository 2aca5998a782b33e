// Package services provides the business logic layer between the transports
// (HTTP handlers, queue worker) and the analysis engine.
package services

import (
	"context"
	"errors"
)

// Error codes returned by the analysis service
const (
	CodeInvalidIntent      = "INVALID_INTENT"
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeInvalidJSON        = "INVALID_JSON"
	CodeMissingResultSet   = "MISSING_RESULT_SET"
	CodeInvalidResultSet   = "INVALID_RESULT_SET"
	CodeUnsupportedDialect = "UNSUPPORTED_DIALECT"
	CodeCancelled          = "CANCELLED"
	CodeInternalError      = "INTERNAL_ERROR"
)

// ServiceError represents a service layer error
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}

// NewServiceError creates a new ServiceError
func NewServiceError(code, message string) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: message,
	}
}

// NewServiceErrorWithDetails creates a new ServiceError with details
func NewServiceErrorWithDetails(code, message string, details map[string]interface{}) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// AsServiceError unwraps err into a ServiceError when it is one
func AsServiceError(err error) (*ServiceError, bool) {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr, true
	}
	return nil, false
}

// cancelled converts a context error into a CANCELLED service error
func cancelled(err error) *ServiceError {
	msg := "request cancelled"
	if errors.Is(err, context.DeadlineExceeded) {
		msg = "request deadline exceeded"
	}
	return NewServiceErrorWithDetails(CodeCancelled, msg, map[string]interface{}{
		"error": err.Error(),
	})
}
