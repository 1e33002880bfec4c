package types

import (
	"fmt"
	"strings"
)

// ValidationError is returned for malformed or disallowed input. It is always
// raised before anything is written to disk.
type ValidationError struct {
	Field   string
	Value   string
	Message string
	Allowed []string
}

func NewValidationError(field, value, message string, allowed ...string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
		Allowed: allowed,
	}
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid %s", e.Field)
	if e.Value != "" {
		msg += fmt.Sprintf(" '%s'", e.Value)
	}
	msg += ": " + e.Message
	if len(e.Allowed) > 0 {
		msg += fmt.Sprintf(". Allowed values: %s", strings.Join(e.Allowed, ", "))
	}
	return msg
}

// SecurityError is returned when a path or filename would escape the output
// tree or is otherwise unsafe to write.
type SecurityError struct {
	Path   string
	Reason string
}

func NewSecurityError(path, reason string) *SecurityError {
	return &SecurityError{Path: path, Reason: reason}
}

func (e *SecurityError) Error() string {
	return fmt.Sprintf("security check failed for %q: %s", e.Path, e.Reason)
}

// GeneratorError covers missing sources and filesystem failures during the
// render/copy stage.
type GeneratorError struct {
	Component string
	Op        string
	Err       error
}

func NewGeneratorError(component, op string, err error) *GeneratorError {
	return &GeneratorError{Component: component, Op: op, Err: err}
}

func (e *GeneratorError) Error() string {
	if e.Component == "" {
		return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("failed to %s for component '%s': %v", e.Op, e.Component, e.Err)
}

func (e *GeneratorError) Unwrap() error {
	return e.Err
}

// TemplateRenderError is a GeneratorError raised while parsing, executing or
// syntax-checking a single template file.
type TemplateRenderError struct {
	Component string
	Template  string
	Err       error
}

func NewTemplateRenderError(component, template string, err error) *TemplateRenderError {
	return &TemplateRenderError{Component: component, Template: template, Err: err}
}

func (e *TemplateRenderError) Error() string {
	return fmt.Sprintf("failed to render template '%s' for component '%s': %v", e.Template, e.Component, e.Err)
}

func (e *TemplateRenderError) Unwrap() error {
	return e.Err
}
