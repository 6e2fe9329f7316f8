package apperrors

import (
	"errors"
	"fmt"
)

type ErrorType string

const (
	TypeConnection ErrorType = "Connection" // Network/session failure reaching a target
	TypeAuth       ErrorType = "Auth"       // Password or key authentication rejected
	TypeTimeout    ErrorType = "Timeout"    // Connection setup exceeded its deadline
	TypeTool       ErrorType = "Tool"       // Nonzero exit from pg_dump, psql, tar, ...
	TypeFormat     ErrorType = "Format"     // Archive not recognized by any container probe
	TypeIntegrity  ErrorType = "Integrity"  // Checksum mismatch against the manifest
	TypeResource   ErrorType = "Resource"   // Insufficient disk space, permission denied
	TypeNotFound   ErrorType = "NotFound"   // Missing filestore directory or profile
	TypeConfig     ErrorType = "Config"     // Invalid or incomplete configuration
	TypeInternal   ErrorType = "Internal"   // Unexpected internal failure
)

// AppError categorizes failures and carries an operator-facing hint.
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
	Hint    string
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

// New creates a new AppError
func New(t ErrorType, msg string, hint string) *AppError {
	return &AppError{
		Type:    t,
		Message: msg,
		Hint:    hint,
	}
}

// Wrap wraps an existing error into an AppError
func Wrap(err error, t ErrorType, msg string, hint string) *AppError {
	return &AppError{
		Type:    t,
		Message: msg,
		Err:     err,
		Hint:    hint,
	}
}

// IsType reports whether err (or anything it wraps) is an AppError of type t.
func IsType(err error, t ErrorType) bool {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Type == t
	}
	return false
}

// TypeOf returns the error type of err, or TypeInternal for plain errors.
func TypeOf(err error) ErrorType {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Type
	}
	return TypeInternal
}
