package ir

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes errors raised by the schema, filter and relation layers.
type ErrorCode string

const (
	// ErrCodeInvalidArgument indicates a malformed filter, clause or schema reference.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"

	// ErrCodeInvalidOperatorValue indicates an operator got an operand of the wrong shape.
	ErrCodeInvalidOperatorValue ErrorCode = "INVALID_OPERATOR_VALUE"

	// ErrCodeNotImplemented indicates an unsupported operator or relation variant.
	ErrCodeNotImplemented ErrorCode = "NOT_IMPLEMENTED"

	// ErrCodeUnknownModel indicates a model name not present in the registry.
	ErrCodeUnknownModel ErrorCode = "UNKNOWN_MODEL"

	// ErrCodeUnknownProperty indicates a property not declared in the resolved hierarchy.
	ErrCodeUnknownProperty ErrorCode = "UNKNOWN_PROPERTY"

	// ErrCodeUnknownRelation indicates a relation not declared in the resolved hierarchy.
	ErrCodeUnknownRelation ErrorCode = "UNKNOWN_RELATION"

	// ErrCodeDuplicateDefinition indicates a model or datasource registered twice.
	ErrCodeDuplicateDefinition ErrorCode = "DUPLICATE_DEFINITION"

	// ErrCodeMissingPrimaryKey indicates a hierarchy with no id property.
	ErrCodeMissingPrimaryKey ErrorCode = "MISSING_PRIMARY_KEY"

	// ErrCodeNotFound indicates a lookup by primary key matched no record.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
)

// Error is the structured error used across the core.
//
// The message is always a human-readable interpolation of the offending
// values; Model and Property narrow the location when known.
type Error struct {
	Code     ErrorCode
	Message  string
	Model    string
	Property string
	Details  map[string]string
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Model != "" && e.Property != "":
		return fmt.Sprintf("%s: %s (model=%s, property=%s)", e.Code, e.Message, e.Model, e.Property)
	case e.Model != "":
		return fmt.Sprintf("%s: %s (model=%s)", e.Code, e.Message, e.Model)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Errorf creates an Error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithModel sets the model location and returns the error.
func (e *Error) WithModel(model string) *Error {
	e.Model = model
	return e
}

// WithProperty sets the property location and returns the error.
func (e *Error) WithProperty(property string) *Error {
	e.Property = property
	return e
}

// HasCode reports whether err (or anything it wraps) is an *Error with code.
func HasCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsInvalidArgument returns true for ErrCodeInvalidArgument errors.
func IsInvalidArgument(err error) bool {
	return HasCode(err, ErrCodeInvalidArgument)
}

// IsInvalidOperatorValue returns true for ErrCodeInvalidOperatorValue errors.
func IsInvalidOperatorValue(err error) bool {
	return HasCode(err, ErrCodeInvalidOperatorValue)
}

// IsNotImplemented returns true for ErrCodeNotImplemented errors.
func IsNotImplemented(err error) bool {
	return HasCode(err, ErrCodeNotImplemented)
}

// IsNotFound returns true for ErrCodeNotFound errors.
func IsNotFound(err error) bool {
	return HasCode(err, ErrCodeNotFound)
}

// NewUnknownModelError reports a model name missing from the registry.
func NewUnknownModelError(name string) *Error {
	return Errorf(ErrCodeUnknownModel, "unknown model %q", name).WithModel(name)
}

// NewUnknownPropertyError reports a property missing from a model's hierarchy.
func NewUnknownPropertyError(model, property string) *Error {
	return Errorf(ErrCodeUnknownProperty, "model %q has no property %q", model, property).
		WithModel(model).WithProperty(property)
}

// NewUnknownRelationError reports a relation missing from a model's hierarchy.
func NewUnknownRelationError(model, relation string) *Error {
	return Errorf(ErrCodeUnknownRelation, "model %q has no relation %q", model, relation).
		WithModel(model).WithProperty(relation)
}
