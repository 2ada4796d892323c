package types

import (
	"errors"
	"fmt"
)

// ErrorType represents different categories of bridge errors
type ErrorType int

const (
	// ErrorTypeUnknown represents an unknown error
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeOpen represents a malformed image or a file that cannot be opened
	ErrorTypeOpen
	// ErrorTypeAllocation represents a failure to hand an image to the engine allocator
	ErrorTypeAllocation
	// ErrorTypeStatement represents a SQL, constraint or read-only violation
	ErrorTypeStatement
	// ErrorTypeInvalidIdentifier represents a table name rejected by the allow-list
	ErrorTypeInvalidIdentifier
	// ErrorTypeBackup represents a failed copy to persistent storage
	ErrorTypeBackup
	// ErrorTypeSerialize represents a failure to capture an image
	ErrorTypeSerialize
)

var errorTypeNames = map[ErrorType]string{
	ErrorTypeUnknown:           "unknown",
	ErrorTypeOpen:              "open",
	ErrorTypeAllocation:        "allocation",
	ErrorTypeStatement:         "statement",
	ErrorTypeInvalidIdentifier: "invalid_identifier",
	ErrorTypeBackup:            "backup",
	ErrorTypeSerialize:         "serialize",
}

func (t ErrorType) String() string {
	if name, ok := errorTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("error_type(%d)", int(t))
}

// ParseErrorType is the inverse of ErrorType.String. Unrecognized names map
// to ErrorTypeUnknown.
func ParseErrorType(name string) ErrorType {
	for t, n := range errorTypeNames {
		if n == name {
			return t
		}
	}
	return ErrorTypeUnknown
}

// Error represents a structured error with type information
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("sqlimage: %s: %v", e.Message, e.Cause)
	}
	return "sqlimage: " + e.Message
}

// Unwrap returns the underlying cause error
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsType checks if the error is of a specific type
func (e *Error) IsType(errorType ErrorType) bool {
	return e.Type == errorType
}

// NewError creates a new Error with the specified type and message
func NewError(errorType ErrorType, message string) *Error {
	return &Error{Type: errorType, Message: message}
}

// NewErrorWithCause creates a new Error with the specified type, message, and underlying cause
func NewErrorWithCause(errorType ErrorType, message string, cause error) *Error {
	return &Error{Type: errorType, Message: message, Cause: cause}
}

// TypeOf returns the ErrorType carried by err, or ErrorTypeUnknown.
func TypeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

func IsOpenError(err error) bool              { return TypeOf(err) == ErrorTypeOpen }
func IsAllocationError(err error) bool        { return TypeOf(err) == ErrorTypeAllocation }
func IsStatementError(err error) bool         { return TypeOf(err) == ErrorTypeStatement }
func IsInvalidIdentifierError(err error) bool { return TypeOf(err) == ErrorTypeInvalidIdentifier }
func IsBackupError(err error) bool            { return TypeOf(err) == ErrorTypeBackup }
func IsSerializeError(err error) bool         { return TypeOf(err) == ErrorTypeSerialize }
