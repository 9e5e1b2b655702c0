// Package transform converts arbitrary recordings into device samples:
// silence trim, optional speed-up, preset quantization, tail padding and
// downmix, one file or a whole tree at a time.
package transform

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/smazurov/volcaprep/internal/events"
	"github.com/smazurov/volcaprep/internal/logging"
	"github.com/smazurov/volcaprep/internal/probe"
	"github.com/smazurov/volcaprep/internal/process"
	"github.com/smazurov/volcaprep/internal/sample"
	"github.com/smazurov/volcaprep/internal/sox"
)

// Transcoder performs the two sox passes.
type Transcoder interface {
	Trim(ctx context.Context, input, output string) error
	Convert(ctx context.Context, p *sox.Params) error
}

// Converted describes one finished output.
type Converted struct {
	Source  string
	Output  string
	Format  sample.Format
	Padding time.Duration
	Elapsed time.Duration
}

// Failure is a skipped input. Err is a *sample.TransformError.
type Failure struct {
	Source string
	Err    error
}

// Result collects the outcome of a run in traversal order.
type Result struct {
	Converted     []Converted
	Failed        []Failure
	SpeedupFactor float64
}

// Err joins every per-file failure, or returns nil.
func (r *Result) Err() error {
	errs := make([]error, 0, len(r.Failed))
	for _, f := range r.Failed {
		errs = append(errs, f.Err)
	}
	return errors.Join(errs...)
}

// Pipeline runs conversions on a bounded worker pool.
type Pipeline struct {
	transcoder Transcoder
	probe      probe.DurationProbe
	logger     logging.Logger
	bus        *events.Bus
	workers    int
	onState    process.StateChangeCallback
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithWorkers bounds concurrent conversions. Default is 1.
func WithWorkers(n int) Option {
	return func(p *Pipeline) { p.workers = n }
}

// WithEventBus publishes SampleConverted and SampleFailed events.
func WithEventBus(bus *events.Bus) Option {
	return func(p *Pipeline) { p.bus = bus }
}

// WithJobStateHook observes worker pool transitions.
func WithJobStateHook(fn process.StateChangeCallback) Option {
	return func(p *Pipeline) { p.onState = fn }
}

// New creates a Pipeline. The probe measures trimmed audio for padding.
func New(t Transcoder, pr probe.DurationProbe, logger logging.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{transcoder: t, probe: pr, logger: logger, workers: 1}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// job is one planned conversion.
type job struct {
	source sample.File
	dest   string
	err    error // set when planning already failed
}

// Run converts input (a file or a directory tree) into outDir. It fails
// before doing any work if input is invalid or outDir cannot be created.
// Per-file failures do not stop the run; they are returned in Result.Failed.
func (p *Pipeline) Run(ctx context.Context, input, outDir string, spec sample.ConversionSpec) (*Result, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	info, err := os.Stat(input)
	if err != nil {
		return nil, &sample.InvalidInputError{Path: input, Reason: "does not exist", Cause: err}
	}
	if !info.IsDir() && !info.Mode().IsRegular() {
		return nil, &sample.InvalidInputError{Path: input, Reason: "not a file or directory"}
	}
	if info.IsDir() && sample.SameDir(input, outDir) {
		return nil, &sample.InvalidInputError{Path: outDir, Reason: "output folder is the input folder"}
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, &sample.DirectoryError{Path: outDir, Cause: err}
	}

	files, err := sample.Collect(sample.Walk(input))
	if err != nil {
		return nil, err
	}
	if info.IsDir() && sample.Nested(outDir, input) {
		files = sample.ExcludeDir(files, outDir)
	}

	if info.IsDir() {
		p.logger.Info("Directory passed, converting every file", "input", input, "files", len(files))
	}
	return p.convert(ctx, files, outDir, info.IsDir(), spec)
}

func (p *Pipeline) convert(ctx context.Context, files []sample.File, outDir string, dirMode bool, spec sample.ConversionSpec) (*Result, error) {
	jobs := plan(files, outDir, dirMode)
	outcomes := make([]outcome, len(jobs))

	opts := &process.PoolOptions{Workers: p.workers, Logger: p.logger, OnStateChange: p.onState}
	pool := process.NewPool(ctx, opts)
	for i, j := range jobs {
		if j.err != nil {
			outcomes[i] = outcome{err: j.err}
			continue
		}
		err := pool.Submit(j.source.Rel, func(ctx context.Context) error {
			c, err := p.convertFile(ctx, j, spec)
			outcomes[i] = outcome{converted: c, err: err}
			return err
		})
		if err != nil {
			outcomes[i] = outcome{err: &sample.TransformError{File: j.source.Path, Stage: sample.StageOutput, Cause: err}}
		}
	}
	infos := pool.Wait()

	byID := make(map[string]process.Info, len(infos))
	for _, info := range infos {
		byID[info.ID] = info
	}

	res := &Result{}
	if spec.SpeedUp() {
		res.SpeedupFactor = spec.SpeedupFactor
	}
	for i, j := range jobs {
		o := outcomes[i]
		if info, ok := byID[j.source.Rel]; ok && info.State == process.StateCanceled {
			o.err = &sample.TransformError{File: j.source.Path, Stage: sample.StageOutput, Cause: info.LastError}
		}
		if o.err != nil {
			res.Failed = append(res.Failed, Failure{Source: j.source.Path, Err: o.err})
			p.publishFailure(j.source.Path, o.err)
			continue
		}
		res.Converted = append(res.Converted, o.converted)
	}

	if res.SpeedupFactor > 0 && len(res.Converted) > 0 {
		p.logger.Warn("Samples were sped up, lower their playback speed on the device by the same factor",
			"factor", res.SpeedupFactor)
	}
	return res, ctx.Err()
}

type outcome struct {
	converted Converted
	err       error
}

// convertFile runs trim, then the main chain, verifies the header and
// moves the result into place. Nothing is left at dest on failure.
func (p *Pipeline) convertFile(ctx context.Context, j job, spec sample.ConversionSpec) (Converted, error) {
	start := time.Now()
	src := j.source.Path
	fail := func(stage sample.Stage, err error) (Converted, error) {
		var stageErr *sox.StageError
		if errors.As(err, &stageErr) {
			stage = stageErr.Stage
			err = stageErr.Err
		}
		return Converted{}, &sample.TransformError{File: src, Stage: stage, Cause: err}
	}

	dir := filepath.Dir(j.dest)
	stem := strings.TrimSuffix(filepath.Base(j.dest), ".wav")

	input := src
	if spec.TrimSilence {
		trimmed := filepath.Join(dir, "."+stem+".trim.wav")
		defer os.Remove(trimmed)
		p.logger.Debug("Removing silence at start and end", "file", src)
		if err := p.transcoder.Trim(ctx, input, trimmed); err != nil {
			return fail(sample.StageTrim, err)
		}
		input = trimmed
	}

	var pad time.Duration
	if spec.AddPadding {
		d, err := p.probe.Duration(ctx, input)
		if err != nil {
			return fail(sample.StagePad, err)
		}
		if spec.SpeedUp() {
			d = time.Duration(float64(d) / spec.SpeedupFactor)
		}
		pad = sample.ComputePadding(d)
	}

	partial := filepath.Join(dir, "."+stem+".partial.wav")
	defer os.Remove(partial)

	if err := p.transcoder.Convert(ctx, sox.NewParams(input, partial, spec, pad)); err != nil {
		return fail(sample.StageQuantize, err)
	}

	format, err := sample.InspectWAV(partial)
	if err != nil {
		return fail(sample.StageOutput, err)
	}
	if stage, err := format.Verify(spec.Preset()); err != nil {
		return fail(stage, err)
	}

	if err := os.Rename(partial, j.dest); err != nil {
		return fail(sample.StageOutput, err)
	}

	c := Converted{Source: src, Output: j.dest, Format: format, Padding: pad, Elapsed: time.Since(start)}
	p.logger.Info("Converted", "file", src, "output", j.dest, "duration", format.Duration, "padding", pad)
	p.bus.Publish(events.SampleConverted{
		Source:   c.Source,
		Output:   c.Output,
		Duration: format.Duration,
		Padding:  pad,
		Elapsed:  c.Elapsed,
	})
	return c, nil
}

func (p *Pipeline) publishFailure(src string, err error) {
	stage := ""
	var te *sample.TransformError
	if errors.As(err, &te) {
		stage = string(te.Stage)
	}
	p.logger.Error("Conversion failed, skipping file", "file", src, "stage", stage, "error", err)
	p.bus.Publish(events.SampleFailed{Source: src, Stage: stage, Error: err.Error()})
}

// plan assigns destinations. A destination claimed by an earlier file in
// traversal order makes the later file fail at the output stage.
func plan(files []sample.File, outDir string, dirMode bool) []job {
	jobs := make([]job, 0, len(files))
	claimed := make(map[string]string, len(files))
	for _, f := range files {
		dest := filepath.Join(outDir, DestName(f.Rel, dirMode))
		prev, taken := claimed[dest]
		if !taken {
			claimed[dest] = f.Path
		}

		j := job{source: f, dest: dest}
		if taken {
			j.err = &sample.TransformError{
				File:  f.Path,
				Stage: sample.StageOutput,
				Cause: fmt.Errorf("%s is already produced from %s", filepath.Base(dest), prev),
			}
		}
		jobs = append(jobs, j)
	}
	return jobs
}

// DestName maps a source to its output base name. The extension becomes
// .wav; in directory mode nested paths are flattened with underscores.
func DestName(rel string, dirMode bool) string {
	name := filepath.Base(rel)
	if dirMode {
		name = strings.ReplaceAll(filepath.ToSlash(rel), "/", "_")
	}
	return strings.TrimSuffix(name, filepath.Ext(name)) + ".wav"
}
