package writing

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidResponse is matched by every ParseError: the model answered, but not
// with a usable article.
var ErrInvalidResponse = errors.New("invalid model response")

// APICallError represents a provider failure that is not eligible for fallback
type APICallError struct {
	Model string
	Cause error
}

func (e *APICallError) Error() string {
	return fmt.Sprintf("API call failed for model %s: %v", e.Model, e.Cause)
}

func (e *APICallError) Unwrap() error {
	return e.Cause
}

// ParseError represents an error parsing the model response
type ParseError struct {
	Model   string
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("parse error (%s): %s: %v", e.Model, e.Message, e.Cause)
	}
	return fmt.Sprintf("parse error (%s): %s", e.Model, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// Is makes every ParseError match ErrInvalidResponse.
func (e *ParseError) Is(target error) bool {
	return target == ErrInvalidResponse
}

// TimeoutError reports a stage that exceeded its own deadline while local
// drafting was disabled.
type TimeoutError struct {
	Stage string
	Model string
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s generation with %s timed out after %s", e.Stage, e.Model, e.After)
}

// Timeout lets callers classify the error without importing this package.
func (e *TimeoutError) Timeout() bool { return true }
