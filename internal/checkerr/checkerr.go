package checkerr

import (
	"errors"
	"fmt"
)

// #region sentinels
var (
	// ErrConfiguration marks malformed or incomplete limit/alias configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrDataUnavailable marks a missing telemetry or predictor sample.
	ErrDataUnavailable = errors.New("data unavailable")
	// ErrEvaluation marks an internal invariant violation during evaluation.
	ErrEvaluation = errors.New("evaluation error")
)

// #endregion sentinels

// #region configuration-error
// ConfigurationError is returned while building registries and custom rules.
type ConfigurationError struct {
	Subject string // limit, alias, or check name the problem refers to
	Message string
	Cause   error
}

func (e *ConfigurationError) Error() string {
	msg := fmt.Sprintf("configuration: %s: %s", e.Subject, e.Message)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error { return e.Cause }

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// Configf builds a ConfigurationError with a formatted message.
func Configf(subject, format string, args ...any) error {
	return &ConfigurationError{Subject: subject, Message: fmt.Sprintf(format, args...)}
}

// #endregion configuration-error

// #region data-unavailable-error
// DataUnavailableError is returned when a channel has no sample for a requested time.
type DataUnavailableError struct {
	Channel string
	Time    float64
	Message string
	Cause   error
}

func (e *DataUnavailableError) Error() string {
	msg := fmt.Sprintf("data unavailable: %s at %.3f: %s", e.Channel, e.Time, e.Message)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *DataUnavailableError) Unwrap() error { return e.Cause }

func (e *DataUnavailableError) Is(target error) bool { return target == ErrDataUnavailable }

// Unavailablef builds a DataUnavailableError with a formatted message.
func Unavailablef(channel string, t float64, format string, args ...any) error {
	return &DataUnavailableError{Channel: channel, Time: t, Message: fmt.Sprintf(format, args...)}
}

// #endregion data-unavailable-error

// #region evaluation-error
// EvaluationError signals an integration bug, e.g. a mask not aligned with its series.
type EvaluationError struct {
	Op      string
	Message string
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluation: %s: %s", e.Op, e.Message)
}

func (e *EvaluationError) Is(target error) bool { return target == ErrEvaluation }

// Evaluationf builds an EvaluationError with a formatted message.
func Evaluationf(op, format string, args ...any) error {
	return &EvaluationError{Op: op, Message: fmt.Sprintf(format, args...)}
}

// #endregion evaluation-error
