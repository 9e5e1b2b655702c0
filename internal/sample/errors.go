package sample

import (
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// Error codes, one per failure kind.
const (
	CodeInvalidInput = "INVALID_INPUT"
	CodeDirectory    = "DIRECTORY_ERROR"
	CodeProbe        = "PROBE_FAILED"
	CodeTransform    = "TRANSFORM_FAILED"
	CodeValidation   = "VALIDATION_FAILED"
	CodeEncode       = "ENCODE_FAILED"
	CodeUnknown      = "UNKNOWN"
)

// Stage names one step of the per-file transform.
type Stage string

// Transform stages in the order they are applied. StageOutput covers
// naming, verification and moving the finished file into place.
const (
	StageTrim     Stage = "trim"
	StageSpeed    Stage = "speed"
	StageQuantize Stage = "quantize"
	StagePad      Stage = "pad"
	StageDownmix  Stage = "downmix"
	StageOutput   Stage = "output"
)

// InvalidInputError is returned when the input path is missing or has the
// wrong type.
type InvalidInputError struct {
	Path   string
	Reason string
	Cause  error
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input %s: %s", e.Path, e.Reason)
}

func (e *InvalidInputError) Unwrap() error { return e.Cause }

// DirectoryError is returned when an output directory cannot be prepared.
type DirectoryError struct {
	Path  string
	Cause error
}

func (e *DirectoryError) Error() string {
	return fmt.Sprintf("cannot create output directory %s: %v", e.Path, e.Cause)
}

func (e *DirectoryError) Unwrap() error { return e.Cause }

// ProbeError is returned when a file's duration cannot be determined.
type ProbeError struct {
	File  string
	Cause error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe %s: %v", e.File, e.Cause)
}

func (e *ProbeError) Unwrap() error { return e.Cause }

// TransformError identifies the stage at which converting File failed.
type TransformError struct {
	File  string
	Stage Stage
	Cause error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("transform %s failed at %s: %v", e.File, e.Stage, e.Cause)
}

func (e *TransformError) Unwrap() error { return e.Cause }

// Constraint names one aggregate batch limit.
type Constraint string

// Batch constraints in the order they are evaluated.
const (
	ConstraintCount    Constraint = "count"
	ConstraintSize     Constraint = "size"
	ConstraintDuration Constraint = "duration"
)

// ValidationError reports the first violated batch constraint together
// with the measured value and the limit. Size is in bytes, duration in
// nanoseconds, count in files.
type ValidationError struct {
	Constraint Constraint
	Measured   int64
	Limit      int64
}

func (e *ValidationError) Error() string {
	switch e.Constraint {
	case ConstraintCount:
		return fmt.Sprintf("count: %d samples exceeds the maximum of %d", e.Measured, e.Limit)
	case ConstraintSize:
		return fmt.Sprintf("size: %s (%d bytes) exceeds the maximum of %s (%d bytes)",
			humanize.IBytes(uint64(e.Measured)), e.Measured, humanize.IBytes(uint64(e.Limit)), e.Limit)
	case ConstraintDuration:
		return fmt.Sprintf("duration: %s of audio exceeds the maximum of %s",
			FormatSeconds(time.Duration(e.Measured)), FormatSeconds(time.Duration(e.Limit)))
	}
	return fmt.Sprintf("%s: %d exceeds %d", e.Constraint, e.Measured, e.Limit)
}

// EncodeError reports the slot whose encoder invocation failed.
type EncodeError struct {
	Slot  int
	File  string
	Cause error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode slot %02d (%s): %v", e.Slot, e.File, e.Cause)
}

func (e *EncodeError) Unwrap() error { return e.Cause }

// Code classifies err by the first typed error found in its chain.
func Code(err error) string {
	var (
		invalid    *InvalidInputError
		dir        *DirectoryError
		probe      *ProbeError
		transform  *TransformError
		validation *ValidationError
		encode     *EncodeError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &invalid):
		return CodeInvalidInput
	case errors.As(err, &dir):
		return CodeDirectory
	case errors.As(err, &validation):
		return CodeValidation
	case errors.As(err, &encode):
		return CodeEncode
	case errors.As(err, &transform):
		return CodeTransform
	case errors.As(err, &probe):
		return CodeProbe
	}
	return CodeUnknown
}

// FormatSeconds renders d as seconds with at most three decimals, e.g. "40s", "9.5s".
func FormatSeconds(d time.Duration) string {
	return humanize.FtoaWithDigits(d.Seconds(), 3) + "s"
}
