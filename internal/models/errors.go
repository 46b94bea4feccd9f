package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrStepLocked   = errors.New("step is locked")
	ErrSaveInFlight = errors.New("save already in progress")
	ErrUnknownStep  = errors.New("unknown step")
)

// FetchError reports a failed read of a step's persisted value.
type FetchError struct {
	Step StepKey
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Step, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// SaveError reports a failed write of a step. The wizard stays on the step.
type SaveError struct {
	Step StepKey
	Err  error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("save %s: %v", e.Step, e.Err)
}

func (e *SaveError) Unwrap() error { return e.Err }

// UploadError reports a failed file transfer. No JSON save was attempted.
type UploadError struct {
	Step StepKey
	File string
	Err  error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %s for %s: %v", e.File, e.Step, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// FieldViolation is a single failed constraint.
type FieldViolation struct {
	Field string
	Rule  string
}

// ValidationError is a client-side constraint violation; it never reaches the network.
type ValidationError struct {
	Step       StepKey
	Violations []FieldViolation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, fmt.Sprintf("%s (%s)", v.Field, v.Rule))
	}
	return fmt.Sprintf("invalid %s: %s", e.Step, strings.Join(parts, ", "))
}
