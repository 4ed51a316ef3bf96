package models

import (
	"fmt"
	"strings"
)

// FieldError pins a validation failure to the request field that caused it.
// The wire shape matches what the frontend consumes from the admin API.
type FieldError struct {
	Location    string   `json:"location"`
	Name        string   `json:"name"`
	Description []string `json:"description"`
}

// ValidationError aggregates field-level failures for a single request.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Name, strings.Join(fe.Description, "; ")))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// NewFieldError builds a single-field ValidationError located in the body.
func NewFieldError(name string, description string) *ValidationError {
	return &ValidationError{Errors: []FieldError{{
		Location:    "body",
		Name:        name,
		Description: []string{description},
	}}}
}
