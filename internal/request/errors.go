package request

import (
	"sort"
	"strings"
)

// ValidationError describes why a raw request was rejected. FormErrors hold
// messages not tied to a single field; FieldErrors are keyed by field name.
type ValidationError struct {
	FormErrors  []string            `json:"formErrors"`
	FieldErrors map[string][]string `json:"fieldErrors"`
}

func newValidationError() *ValidationError {
	return &ValidationError{
		FormErrors:  []string{},
		FieldErrors: map[string][]string{},
	}
}

func (e *ValidationError) addField(field, msg string) {
	e.FieldErrors[field] = append(e.FieldErrors[field], msg)
}

func (e *ValidationError) empty() bool {
	return len(e.FormErrors) == 0 && len(e.FieldErrors) == 0
}

// Error lists the form errors first, then field errors sorted by field.
func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.FormErrors)+len(e.FieldErrors))
	parts = append(parts, e.FormErrors...)

	fields := make([]string, 0, len(e.FieldErrors))
	for field := range e.FieldErrors {
		fields = append(fields, field)
	}

	sort.Strings(fields)

	for _, field := range fields {
		parts = append(parts, field+": "+strings.Join(e.FieldErrors[field], ", "))
	}

	return "validation failed: " + strings.Join(parts, "; ")
}

// Fatal reports whether the request was rejected before field validation,
// which happens when it carried nothing to analyze.
func (e *ValidationError) Fatal() bool {
	return len(e.FieldErrors) == 0 && len(e.FormErrors) > 0
}
