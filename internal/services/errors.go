package services

import (
	"context"
	"errors"
	"strings"

	"lunchscraper/internal/history"
)

// Markers classify failures. Wrap one into every error that leaves a stage so
// callers can pick a run status and an operator hint with errors.Is.
var (
	ErrExternalTool  = errors.New("external service error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// StageError is a classified failure raised inside one slot chain stage.
type StageError struct {
	Marker    error
	Stage     string
	Operation string
	Message   string
	Err       error
}

func (e *StageError) Error() string {
	parts := make([]string, 0, 5)
	parts = append(parts, e.Marker.Error())
	for _, part := range []string{e.Stage, e.Operation, e.Message} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) == 1 {
		parts = append(parts, "service failure")
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	return strings.Join(parts, ": ")
}

// Unwrap exposes both the marker and the cause to errors.Is and errors.As.
func (e *StageError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Marker}
	}
	return []error{e.Marker, e.Err}
}

// Wrap tags err with marker and the stage/operation it came from. A nil
// marker defaults to ErrTransient.
func Wrap(marker error, stage, operation, message string, err error) error {
	if marker == nil {
		marker = ErrTransient
	}
	return &StageError{
		Marker:    marker,
		Stage:     strings.TrimSpace(stage),
		Operation: strings.TrimSpace(operation),
		Message:   strings.TrimSpace(message),
		Err:       err,
	}
}

// StageOf returns the stage recorded by the outermost StageError in err's
// chain, or "" when none is present.
func StageOf(err error) string {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Stage
	}
	return ""
}

// FailureStatus maps a run or slot error to the status recorded in the run
// history.
func FailureStatus(err error) history.Status {
	switch {
	case errors.Is(err, context.Canceled):
		return history.StatusCanceled
	case errors.Is(err, ErrValidation), errors.Is(err, ErrConfiguration):
		return history.StatusInvalid
	default:
		return history.StatusFailed
	}
}
