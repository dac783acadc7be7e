package models

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError represents a malformed input value
// Validation errors are permanent
type ValidationError struct {
	Line    int
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s: %s (%q)", e.Line, e.Field, e.Message, e.Value)
	}
	return fmt.Sprintf("%s: %s (%q)", e.Field, e.Message, e.Value)
}

// IsTransient returns false as validation errors are permanent
func (e *ValidationError) IsTransient() bool {
	return false
}

// IngestError rejects a whole input table. It carries the line level
// problems found while reading it.
type IngestError struct {
	Source    string
	Problems  []error
	Truncated int // problems not kept once the cap was reached
}

func (e *IngestError) Error() string {
	msgs := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		msgs = append(msgs, p.Error())
	}
	msg := fmt.Sprintf("rejected input %s: %s", e.Source, strings.Join(msgs, "; "))
	if e.Truncated > 0 {
		msg += fmt.Sprintf(" (and %d more)", e.Truncated)
	}
	return msg
}

// Unwrap exposes the individual problems to errors.Is / errors.As
func (e *IngestError) Unwrap() []error {
	return e.Problems
}

// IsTransient returns false as a malformed input stays malformed
func (e *IngestError) IsTransient() bool {
	return false
}

// IsInputError reports whether err is caused by malformed input
func IsInputError(err error) bool {
	var ve *ValidationError
	var ie *IngestError
	return errors.As(err, &ve) || errors.As(err, &ie)
}
