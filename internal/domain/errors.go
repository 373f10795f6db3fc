package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Common domain errors that can occur during an evaluation round.
var (
	// ErrNoCandidates indicates that every method failed for a round.
	ErrNoCandidates = errors.New("no translation candidates")

	// ErrMethodUnavailable indicates that a translation method could not be
	// invoked. Rounds recover from it by dropping the method.
	ErrMethodUnavailable = errors.New("translation method unavailable")

	// ErrJudgeUnavailable indicates that arbitration could not be completed.
	// Rounds recover from it by selecting without judge scores.
	ErrJudgeUnavailable = errors.New("judge unavailable")

	// ErrMalformedCandidate indicates an empty or whitespace-only translation.
	// Such candidates are scored at the floor rather than rejected.
	ErrMalformedCandidate = errors.New("malformed candidate")

	// ErrInvalidConfiguration indicates that configuration is invalid or incomplete.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrDuplicateMethod indicates two candidates in one round share a method.
	ErrDuplicateMethod = errors.New("duplicate method in round")

	// ErrSourceMismatch indicates candidates in one round translate different sources.
	ErrSourceMismatch = errors.New("candidates do not share a source text")

	// ErrMissingScores indicates a candidate reached selection unscored.
	ErrMissingScores = errors.New("candidate is missing heuristic scores")
)

// MethodUnavailableError records why a single method produced no candidate.
type MethodUnavailableError struct {
	// Method is the method that failed.
	Method Method

	// Reason is a short human-readable cause such as "timeout".
	Reason string

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface for MethodUnavailableError.
func (e *MethodUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("method %s unavailable: %s: %v", e.Method, e.Reason, e.Err)
	}
	return fmt.Sprintf("method %s unavailable: %s", e.Method, e.Reason)
}

// Unwrap returns the underlying error.
func (e *MethodUnavailableError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrMethodUnavailable) hold for every instance.
func (e *MethodUnavailableError) Is(target error) bool { return target == ErrMethodUnavailable }

// NewMethodUnavailableError creates a MethodUnavailableError.
func NewMethodUnavailableError(method Method, reason string, err error) *MethodUnavailableError {
	return &MethodUnavailableError{Method: method, Reason: reason, Err: err}
}

// NoCandidatesError is returned when a round ends without a single candidate.
// It carries the failure reason of every attempted method.
type NoCandidatesError struct {
	// Failures maps each attempted method to its failure.
	Failures map[Method]*MethodUnavailableError
}

// Error implements the error interface for NoCandidatesError.
// Methods are listed in priority order so the message is stable.
func (e *NoCandidatesError) Error() string {
	methods := make([]Method, 0, len(e.Failures))
	for m := range e.Failures {
		methods = append(methods, m)
	}
	sort.Slice(methods, func(i, j int) bool { return methods[i].Priority() < methods[j].Priority() })

	parts := make([]string, 0, len(methods))
	for _, m := range methods {
		parts = append(parts, e.Failures[m].Error())
	}
	return fmt.Sprintf("%v: %d method(s) failed: [%s]", ErrNoCandidates, len(methods), strings.Join(parts, "; "))
}

// Is makes errors.Is(err, ErrNoCandidates) hold.
func (e *NoCandidatesError) Is(target error) bool { return target == ErrNoCandidates }

// Reasons returns the failure reason per method.
func (e *NoCandidatesError) Reasons() map[Method]string {
	out := make(map[Method]string, len(e.Failures))
	for m, f := range e.Failures {
		out[m] = f.Error()
	}
	return out
}

// NewNoCandidatesError creates a NoCandidatesError from per-method failures.
func NewNoCandidatesError(failures map[Method]*MethodUnavailableError) *NoCandidatesError {
	copied := make(map[Method]*MethodUnavailableError, len(failures))
	for m, f := range failures {
		copied[m] = f
	}
	return &NoCandidatesError{Failures: copied}
}

// JudgeUnavailableError describes why arbitration produced no usable scores.
type JudgeUnavailableError struct {
	// Reason is a short cause such as "malformed response".
	Reason string

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface for JudgeUnavailableError.
func (e *JudgeUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("judge unavailable: %s: %v", e.Reason, e.Err)
	}
	return "judge unavailable: " + e.Reason
}

// Unwrap returns the underlying error.
func (e *JudgeUnavailableError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrJudgeUnavailable) hold for every instance.
func (e *JudgeUnavailableError) Is(target error) bool { return target == ErrJudgeUnavailable }

// NewJudgeUnavailableError creates a JudgeUnavailableError.
func NewJudgeUnavailableError(reason string, err error) *JudgeUnavailableError {
	return &JudgeUnavailableError{Reason: reason, Err: err}
}

// ValidationError represents an error that occurred during validation.
// It can contain multiple validation failures.
type ValidationError struct {
	// Entity is the name of the entity that failed validation.
	Entity string

	// Errors contains the list of validation error messages.
	Errors []string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation error for %s: %s", e.Entity, e.Errors[0])
	}
	return fmt.Sprintf("validation errors for %s: %v", e.Entity, e.Errors)
}

// Unwrap lets validation failures match ErrInvalidConfiguration.
func (e *ValidationError) Unwrap() error { return ErrInvalidConfiguration }

// AddError adds a new error message to the validation error.
func (e *ValidationError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

// HasErrors returns true if there are any validation errors.
func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }

// NewValidationError creates a new ValidationError for the given entity.
func NewValidationError(entity string) *ValidationError {
	return &ValidationError{
		Entity: entity,
		Errors: make([]string, 0),
	}
}
