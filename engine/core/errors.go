package core

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is matching across the injection pipeline.
var (
	ErrConfiguration     = errors.New("configuration error")
	ErrTemplateLoad      = errors.New("template load error")
	ErrSubstitutionParse = errors.New("substitution parse error")
	ErrLayerExtraction   = errors.New("layer extraction error")
)

// ConfigurationError reports invalid caller input: an unknown provider or a
// missing mandatory business field. It is never retried.
type ConfigurationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("configuration error: %s", e.Reason)
	}
	return fmt.Sprintf("configuration error on %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

func NewConfigurationError(field, reason string, err error) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: reason, Err: err}
}

// TemplateLoadError describes a failed template fetch. The selector logs it and
// degrades to a fallback template instead of returning it.
type TemplateLoadError struct {
	Provider string
	Err      error
}

func (e *TemplateLoadError) Error() string {
	return fmt.Sprintf("failed to load template for provider %s: %v", e.Provider, e.Err)
}

func (e *TemplateLoadError) Unwrap() error {
	return e.Err
}

func (e *TemplateLoadError) Is(target error) bool {
	return target == ErrTemplateLoad
}

// SubstitutionParseError is returned when the substituted workflow text is not
// a valid document. Offset is the byte offset into the buffer; Excerpt is the
// text surrounding it.
type SubstitutionParseError struct {
	Offset  int64
	Line    int
	Column  int
	Excerpt string
	Err     error
}

func (e *SubstitutionParseError) Error() string {
	return fmt.Sprintf(
		"substituted workflow is not valid JSON at offset %d (line %d, column %d) near %q: %v",
		e.Offset, e.Line, e.Column, e.Excerpt, e.Err,
	)
}

func (e *SubstitutionParseError) Unwrap() error {
	return e.Err
}

func (e *SubstitutionParseError) Is(target error) bool {
	return target == ErrSubstitutionParse
}

// LayerExtractionError wraps a failure from one of the configuration layer
// extractors. The engine recovers from it with literal fallbacks.
type LayerExtractionError struct {
	Layer string
	Err   error
}

func (e *LayerExtractionError) Error() string {
	return fmt.Sprintf("layer %s extraction failed: %v", e.Layer, e.Err)
}

func (e *LayerExtractionError) Unwrap() error {
	return e.Err
}

func (e *LayerExtractionError) Is(target error) bool {
	return target == ErrLayerExtraction
}
