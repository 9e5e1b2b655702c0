package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/smazurov/volcaprep/internal/events"
	"github.com/smazurov/volcaprep/internal/logging"
	"github.com/smazurov/volcaprep/internal/probe"
	"github.com/smazurov/volcaprep/internal/process"
	"github.com/smazurov/volcaprep/internal/sample"
)

// Validator builds and checks a Manifest for a directory.
type Validator struct {
	probe   probe.DurationProbe
	logger  logging.Logger
	limits  Limits
	workers int
	bus     *events.Bus
	onState process.StateChangeCallback
	outDir  string
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// WithLimits overrides DeviceLimits.
func WithLimits(l Limits) ValidatorOption {
	return func(v *Validator) { v.limits = l }
}

// WithProbeWorkers bounds concurrent probes. Default is 1.
func WithProbeWorkers(n int) ValidatorOption {
	return func(v *Validator) { v.workers = n }
}

// WithValidatorEvents publishes BatchValidated.
func WithValidatorEvents(bus *events.Bus) ValidatorOption {
	return func(v *Validator) { v.bus = bus }
}

// WithOutputDir skips dir when it lies inside the validated folder, so
// slot files from an earlier encode are not counted as samples.
func WithOutputDir(dir string) ValidatorOption {
	return func(v *Validator) { v.outDir = dir }
}

// WithProbeStateHook observes the probe pool's job transitions.
func WithProbeStateHook(fn process.StateChangeCallback) ValidatorOption {
	return func(v *Validator) { v.onState = fn }
}

// NewValidator creates a Validator.
func NewValidator(pr probe.DurationProbe, logger logging.Logger, opts ...ValidatorOption) *Validator {
	v := &Validator{probe: pr, logger: logger, limits: DeviceLimits, workers: 1}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate walks dir, probes every file and only then checks the limits.
// A file whose duration cannot be determined fails the whole batch, since
// the total could not be trusted. On a limit violation the manifest is
// returned alongside the *sample.ValidationError.
func (v *Validator) Validate(ctx context.Context, dir string) (*Manifest, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, &sample.InvalidInputError{Path: dir, Reason: "does not exist", Cause: err}
	}
	if !info.IsDir() {
		return nil, &sample.InvalidInputError{Path: dir, Reason: "not a directory"}
	}

	files, err := sample.Collect(sample.Walk(dir))
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}
	if v.outDir != "" && sample.Nested(v.outDir, dir) {
		files = sample.ExcludeDir(files, v.outDir)
	}
	v.logger.Debug("Scanned batch", "dir", dir, "files", len(files))

	if err := v.probeAll(ctx, files); err != nil {
		return nil, err
	}
	for _, f := range files {
		v.warnFormat(f)
	}

	m := NewManifest(dir, files)
	checkErr := m.Check(v.limits)

	ev := events.BatchValidated{Count: m.TotalCount, SizeBytes: m.TotalSize, Duration: m.TotalDuration}
	var ve *sample.ValidationError
	if errors.As(checkErr, &ve) {
		ev.Violation = string(ve.Constraint)
	}
	v.bus.Publish(ev)

	if checkErr != nil {
		v.logger.Error("Batch rejected", "error", checkErr)
		return m, checkErr
	}
	v.logger.Info("Batch validated",
		"count", m.TotalCount,
		"size", m.TotalSize,
		"duration", sample.FormatSeconds(m.TotalDuration))
	return m, nil
}

// probeAll fills in every file's duration. All probes finish before it
// returns; the first failure in traversal order is reported.
func (v *Validator) probeAll(ctx context.Context, files []sample.File) error {
	pool := process.NewPool(ctx, &process.PoolOptions{Workers: v.workers, Logger: v.logger, OnStateChange: v.onState})
	for i := range files {
		err := pool.Submit(files[i].Rel, func(ctx context.Context) error {
			d, err := v.probe.Duration(ctx, files[i].Path)
			if err != nil {
				return err
			}
			files[i].Duration = d
			return nil
		})
		if err != nil {
			return err
		}
	}

	for i, info := range pool.Wait() {
		if info.State == process.StateDone {
			continue
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		var pe *sample.ProbeError
		if errors.As(info.LastError, &pe) {
			return pe
		}
		return &sample.ProbeError{File: files[i].Path, Cause: info.LastError}
	}
	return nil
}

// warnFormat logs files the device would reject if played as is.
func (v *Validator) warnFormat(f sample.File) {
	format, err := sample.InspectWAV(f.Path)
	if err != nil {
		v.logger.Warn("Sample is not a WAV file, the encoder may reject it", "file", f.Rel)
		return
	}
	if warnings := format.DeviceWarnings(); len(warnings) > 0 {
		v.logger.Warn("Sample exceeds device format", "file", f.Rel, "issues", strings.Join(warnings, ", "))
	}
}
