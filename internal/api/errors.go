package api

import (
	"fmt"
	"sort"
	"strings"
)

// FieldError names one offending field and why it was rejected.
// Field is a path such as "node_ids[2]".
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e FieldError) String() string {
	return e.Field + ": " + e.Reason
}

// ValidationError reports a malformed request. It is always a caller error.
type ValidationError struct {
	Errors []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.String()
	}
	return "invalid arguments: " + strings.Join(parts, "; ")
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, reasonFmt string, args ...any) *ValidationError {
	return &ValidationError{Errors: []FieldError{{Field: field, Reason: fmt.Sprintf(reasonFmt, args...)}}}
}

// fieldErrors accumulates problems while a map is walked.
type fieldErrors []FieldError

func (fe *fieldErrors) add(field, reasonFmt string, args ...any) {
	*fe = append(*fe, FieldError{Field: field, Reason: fmt.Sprintf(reasonFmt, args...)})
}

// err returns nil when nothing was recorded. Fields are sorted so the message
// does not depend on map iteration order.
func (fe fieldErrors) err() error {
	if len(fe) == 0 {
		return nil
	}
	out := append([]FieldError(nil), fe...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return &ValidationError{Errors: out}
}
