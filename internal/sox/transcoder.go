package sox

import (
	"context"
	"errors"
	"fmt"

	"github.com/smazurov/volcaprep/internal/logging"
	"github.com/smazurov/volcaprep/internal/process"
	"github.com/smazurov/volcaprep/internal/sample"
)

// ToolName is the tool label used for logs and the process runner.
const ToolName = "sox"

// StageError is a failed sox invocation attributed to a transform stage.
type StageError struct {
	Stage sample.Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Transcoder runs sox through a process.Runner.
type Transcoder struct {
	runner process.Runner
	binary string
	logger logging.Logger
}

// NewTranscoder creates a Transcoder invoking binary (usually "sox").
func NewTranscoder(runner process.Runner, binary string, logger logging.Logger) *Transcoder {
	if binary == "" {
		binary = ToolName
	}
	return &Transcoder{runner: runner, binary: binary, logger: logger}
}

// Trim strips leading and trailing near-silence from input into output.
func (t *Transcoder) Trim(ctx context.Context, input, output string) error {
	return t.run(ctx, TrimArgs(input, output), sample.StageTrim)
}

// Convert runs the speed, quantize, pad and downmix chain.
func (t *Transcoder) Convert(ctx context.Context, p *Params) error {
	fallback := sample.StageQuantize
	if p.Speed > 0 && p.Speed != 1 {
		fallback = sample.StageSpeed
	}
	return t.run(ctx, BuildArgs(p), fallback)
}

func (t *Transcoder) run(ctx context.Context, args []string, fallback sample.Stage) error {
	res, err := t.runner.Run(ctx, process.Command{Tool: ToolName, Path: t.binary, Args: args})
	if err == nil {
		return nil
	}

	stage := fallback
	var exitErr *process.ExitError
	if errors.As(err, &exitErr) && res != nil {
		stage = FailedStage(string(res.Output), fallback)
	}
	t.logger.Debug("sox failed", "stage", stage, "error", err)
	return &StageError{Stage: stage, Err: err}
}
