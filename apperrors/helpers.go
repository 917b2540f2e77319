package apperrors

import (
	"errors"
)

// Wrap creates a classified error.
func Wrap(class ErrorClass, operation string, err error) *ClassifiedError {
	if err == nil {
		return nil
	}

	return &ClassifiedError{
		Class:     class,
		Operation: operation,
		Err:       err,
		Context:   make(map[string]any),
	}
}

// New creates a new classified error with a message.
func New(class ErrorClass, operation string, message string) *ClassifiedError {
	return &ClassifiedError{
		Class:     class,
		Operation: operation,
		Err:       errors.New(message),
		Context:   make(map[string]any),
	}
}

// WrapWithMessageFor wraps err and names the entity it failed on.
// A nil err produces a new error carrying only the message.
func WrapWithMessageFor(
	class ErrorClass,
	operation string,
	message string,
	messageFor string,
	err error,
) *ClassifiedError {
	if err == nil {
		classified := New(class, operation, message)
		classified.MessageFor = messageFor
		return classified
	}

	classified := Wrap(class, operation, err)
	classified.Message = message
	classified.MessageFor = messageFor

	return classified
}

// WithContext adds context to a classified error.
func (e *ClassifiedError) WithContext(key string, value any) *ClassifiedError {
	if e == nil {
		return nil
	}
	if e.Context == nil {
		e.Context = make(map[string]any)
	}

	e.Context[key] = value

	return e
}

// GetClass extracts the error class from an error.
func GetClass(err error) ErrorClass {
	if err == nil {
		return ErrClassUnknown
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class
	}

	return ErrClassUnknown
}

// IsClass reports whether any error in err's chain carries class.
func IsClass(err error, class ErrorClass) bool {
	return err != nil && GetClass(err) == class
}

// GetOperation extracts the operation from an error.
func GetOperation(err error) string {
	if err == nil {
		return ""
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Operation
	}

	return ""
}

// GetContext extracts context from an error.
func GetContext(err error) map[string]any {
	if err == nil {
		return nil
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Context
	}

	return nil
}

// LogFields returns key/value pairs describing err for logger.LogDynamicany.
func LogFields(err error) []any {
	if err == nil {
		return nil
	}
	fields := []any{"error_class", string(GetClass(err))}
	if op := GetOperation(err); op != "" {
		fields = append(fields, "operation", op)
	}
	if ctx := GetContext(err); len(ctx) > 0 {
		fields = append(fields, "error_context", ctx)
	}
	return append(fields, err)
}
