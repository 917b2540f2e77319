package apperrors

import (
	"strings"
)

// ErrorClass represents the category of an error.
type ErrorClass string

const (
	// ErrClassConnection is fatal: the store could not be reached, nothing was done.
	ErrClassConnection ErrorClass = "CONNECTION"
	// ErrClassResolution marks a reference category whose resolution failed and was rolled back.
	ErrClassResolution ErrorClass = "RESOLUTION"
	// ErrClassUpsert marks a failed bulk insert of movies or relationship rows.
	ErrClassUpsert ErrorClass = "UPSERT"
	// ErrClassRecord marks a malformed or inadmissible input record.
	ErrClassRecord ErrorClass = "RECORD"
	// ErrClassConfig represents configuration-related errors.
	ErrClassConfig ErrorClass = "CONFIG"
	// ErrClassDatabase represents database errors outside the pipeline units (migrations, stats).
	ErrClassDatabase ErrorClass = "DATABASE"
	// ErrClassFileSystem represents filesystem-related errors.
	ErrClassFileSystem ErrorClass = "FILESYSTEM"
	// ErrClassUnknown represents unknown or unclassified errors.
	ErrClassUnknown ErrorClass = "UNKNOWN"
)

// ClassifiedError wraps an error with classification metadata.
type ClassifiedError struct {
	// Class represents the category of the error
	Class ErrorClass
	// Operation describes the operation that failed
	Operation string
	// Message describes the failed operation in more detail
	Message string
	// MessageFor identifies the entity the operation failed on (table, category, row).
	MessageFor string
	// Err is the underlying error
	Err error
	// Context provides additional context about the error
	Context map[string]any
}

// Error implements the error interface.
func (e *ClassifiedError) Error() string {
	var bld strings.Builder

	bld.WriteRune('[')
	bld.WriteString(string(e.Class))
	bld.WriteRune(']')

	if e.Operation != "" {
		bld.WriteRune(' ')
		bld.WriteString(e.Operation)
	}

	if e.Message != "" {
		bld.WriteRune(' ')
		bld.WriteString(e.Message)
	}

	if e.MessageFor != "" {
		bld.WriteString(" for: ")
		bld.WriteString(e.MessageFor)
	}

	if e.Err != nil {
		bld.WriteString(" Error: ")
		bld.WriteString(e.Err.Error())
	}
	return bld.String()
}

// Unwrap returns the wrapped error for errors.Is/As compatibility.
func (e *ClassifiedError) Unwrap() error {
	return e.Err
}
