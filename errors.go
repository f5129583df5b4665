package markmesh

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Error classes, match with errors.Is.
var (
	ErrShape           = errors.New("invalid image shape")
	ErrDecode          = errors.New("decode image")
	ErrValidation      = errors.New("invalid input")
	ErrChannelRecovery = errors.New("channel recovery failed")
	ErrColorConversion = errors.New("color conversion failed")
	ErrEncode          = errors.New("encode image")
	ErrProcessing      = errors.New("processing failed")
	// ErrNoSignal is returned when a plane has no row pair to demodulate.
	ErrNoSignal = errors.New("no signal")
)

// ShapeError reports an input whose dimensions violate a fixed contract.
type ShapeError struct {
	Input string
	Got   Shape
	Want  Shape
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("invalid %s dimensions %v, want %v", e.Input, e.Got, e.Want)
}

func (e *ShapeError) Unwrap() error { return ErrShape }

// DecodeError reports malformed image bytes.
type DecodeError struct {
	Input string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Input, e.Err)
}

func (e *DecodeError) Unwrap() []error { return []error{ErrDecode, e.Err} }

// ChannelFailure describes a single plane that could not be recovered.
type ChannelFailure struct {
	Channel string
	Err     error
}

// ChannelRecoveryError aggregates every plane that failed during extraction.
type ChannelRecoveryError struct {
	Failures []ChannelFailure
}

func (e *ChannelRecoveryError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s channel: %v", f.Channel, f.Err))
	}
	return "failed to extract watermark: " + strings.Join(parts, "; ")
}

func (e *ChannelRecoveryError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures)+1)
	errs = append(errs, ErrChannelRecovery)
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

// Channels lists the names of the failed planes.
func (e *ChannelRecoveryError) Channels() []string {
	names := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		names = append(names, f.Channel)
	}
	return names
}

// ColorConversionError reports planes that cannot be combined into an RGB image.
// Extraction handles it locally by degrading to grayscale.
type ColorConversionError struct {
	Transform string
	Reason    string
}

func (e *ColorConversionError) Error() string {
	return fmt.Sprintf("%s to RGB: %s", e.Transform, e.Reason)
}

func (e *ColorConversionError) Unwrap() error { return ErrColorConversion }

// ProcessingError wraps an unexpected numeric failure with the operation that hit it.
type ProcessingError struct {
	Op  string
	Err error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ProcessingError) Unwrap() []error { return []error{ErrProcessing, e.Err} }

// guard runs fn and converts a panic into a ProcessingError.
func guard(op string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			cause, ok := r.(error)
			if !ok {
				cause = fmt.Errorf("%v", r)
			}
			err = &ProcessingError{Op: op, Err: cause}
		}
	}()
	return fn()
}

func validateAlpha(alpha float64) error {
	if !(alpha > 0) || math.IsInf(alpha, 1) {
		return fmt.Errorf("%w: alpha must be a positive finite number, got %v", ErrValidation, alpha)
	}
	return nil
}
