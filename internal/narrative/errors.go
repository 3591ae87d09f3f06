package narrative

import (
	"errors"
	"fmt"
	"strings"
)

// Error type tags carried on Error responses.
const (
	ErrTypeTemplateNotFound = "template_not_found"
	ErrTypeTemplateRender   = "template_error"
	ErrTypeValidation       = "validation_error"
	ErrTypeGenerationFailed = "generation_failed"
)

// TemplateNotFoundError means no registered template matches the request.
// Non-retryable; callers should fall back to the generic/hybrid path.
type TemplateNotFoundError struct {
	NarrativeType Type
	TestName      string
	TemplateID    string
}

func (e *TemplateNotFoundError) Error() string {
	if e.TemplateID != "" {
		return fmt.Sprintf("template %q not found", e.TemplateID)
	}
	if e.TestName != "" {
		return fmt.Sprintf("no template found for %s test %q", e.NarrativeType, e.TestName)
	}
	return fmt.Sprintf("no template found for %s", e.NarrativeType)
}

// TemplateRenderError means a required context field was absent or a
// template directive failed to evaluate for a template that did match.
type TemplateRenderError struct {
	TemplateID    string
	MissingFields []string
	Err           error
}

func (e *TemplateRenderError) Error() string {
	if len(e.MissingFields) > 0 {
		return fmt.Sprintf("rendering template %s: missing required fields: %s",
			e.TemplateID, strings.Join(e.MissingFields, ", "))
	}
	return fmt.Sprintf("rendering template %s: %v", e.TemplateID, e.Err)
}

func (e *TemplateRenderError) Unwrap() error { return e.Err }

// ValidationError means a raw field map could not be turned into a typed
// request. Raised before the request ever reaches the assembler.
type ValidationError struct {
	TemplateID    string
	MissingFields []string
	UnknownFields []string
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.MissingFields) > 0 {
		parts = append(parts, "missing required fields: "+strings.Join(e.MissingFields, ", "))
	}
	if len(e.UnknownFields) > 0 {
		parts = append(parts, "unknown fields: "+strings.Join(e.UnknownFields, ", "))
	}
	if len(parts) == 0 {
		parts = append(parts, "invalid field map")
	}
	return fmt.Sprintf("validating fields for template %s: %s", e.TemplateID, strings.Join(parts, "; "))
}

// Error is the structured error carrier surfaced to callers. Template
// generation is the fallback tier for every AI method, so
// FallbackAvailable stays true even when template assembly itself failed.
type Error struct {
	ErrorType         string         `json:"error_type"`
	Message           string         `json:"error_message"`
	Details           map[string]any `json:"details,omitempty"`
	Suggestions       []string       `json:"suggestions"`
	FallbackAvailable bool           `json:"fallback_available"`
}

func (e *Error) Error() string { return e.Message }

var errorSuggestions = map[string][]string{
	ErrTypeTemplateNotFound: {
		"Check the test name against the supported test types",
		"Use the hybrid generation method for unsupported tests",
	},
	ErrTypeTemplateRender: {
		"Check that all required fields are provided",
		"Verify data types match expected template inputs",
		"Review template syntax if using custom templates",
	},
	ErrTypeValidation: {
		"Check required fields are provided",
		"Remove fields the template does not accept",
	},
	ErrTypeGenerationFailed: {
		"Try using template generation method as fallback",
		"Check system resources and network connectivity",
		"Verify input data quality and completeness",
	},
}

// Suggestions returns the fixed actionable suggestions for an error type.
func Suggestions(errorType string) []string {
	if s, ok := errorSuggestions[errorType]; ok {
		return s
	}
	return []string{"Contact support for assistance"}
}

// AsError classifies err into a structured Error. Already-structured
// errors pass through unchanged.
func AsError(err error) *Error {
	var nerr *Error
	if errors.As(err, &nerr) {
		return nerr
	}

	var notFound *TemplateNotFoundError
	if errors.As(err, &notFound) {
		return &Error{
			ErrorType: ErrTypeTemplateNotFound,
			Message:   notFound.Error(),
			Details: map[string]any{
				"narrative_type": string(notFound.NarrativeType),
				"test_name":      notFound.TestName,
				"template_id":    notFound.TemplateID,
			},
			Suggestions:       Suggestions(ErrTypeTemplateNotFound),
			FallbackAvailable: true,
		}
	}

	var render *TemplateRenderError
	if errors.As(err, &render) {
		details := map[string]any{"template_id": render.TemplateID}
		if len(render.MissingFields) > 0 {
			details["missing_fields"] = render.MissingFields
		}
		return &Error{
			ErrorType:         ErrTypeTemplateRender,
			Message:           render.Error(),
			Details:           details,
			Suggestions:       Suggestions(ErrTypeTemplateRender),
			FallbackAvailable: true,
		}
	}

	var invalid *ValidationError
	if errors.As(err, &invalid) {
		return &Error{
			ErrorType:         ErrTypeValidation,
			Message:           invalid.Error(),
			Details:           map[string]any{"template_id": invalid.TemplateID},
			Suggestions:       Suggestions(ErrTypeValidation),
			FallbackAvailable: true,
		}
	}

	return &Error{
		ErrorType:         ErrTypeGenerationFailed,
		Message:           fmt.Sprintf("failed to generate narrative: %v", err),
		Suggestions:       Suggestions(ErrTypeGenerationFailed),
		FallbackAvailable: true,
	}
}
