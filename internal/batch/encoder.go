package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/smazurov/volcaprep/internal/events"
	"github.com/smazurov/volcaprep/internal/logging"
	"github.com/smazurov/volcaprep/internal/process"
	"github.com/smazurov/volcaprep/internal/sample"
)

// EncoderTool is the tool label used for logs and the process runner.
const EncoderTool = "encoder"

// DefaultEncoderArgs invokes a syro-style encoder per slot.
var DefaultEncoderArgs = []string{"-n", PlaceholderSlot, "-o", PlaceholderOutput, PlaceholderInput}

// Encoder runs the vendor encoder once per slot. Either every slot file is
// produced or none is.
type Encoder struct {
	runner  process.Runner
	binary  string
	args    []string
	logger  logging.Logger
	workers int
	bus     *events.Bus
	onState process.StateChangeCallback
}

// EncoderOption configures an Encoder.
type EncoderOption func(*Encoder)

// WithEncoderWorkers bounds concurrent encoder invocations. Default is 1.
func WithEncoderWorkers(n int) EncoderOption {
	return func(e *Encoder) { e.workers = n }
}

// WithEncoderEvents publishes SlotEncoded.
func WithEncoderEvents(bus *events.Bus) EncoderOption {
	return func(e *Encoder) { e.bus = bus }
}

// WithEncoderStateHook observes the encode pool's job transitions.
func WithEncoderStateHook(fn process.StateChangeCallback) EncoderOption {
	return func(e *Encoder) { e.onState = fn }
}

// NewEncoder creates an Encoder. args is a template using the {slot},
// {input} and {output} placeholders; nil selects DefaultEncoderArgs.
func NewEncoder(runner process.Runner, binary string, args []string, logger logging.Logger, opts ...EncoderOption) *Encoder {
	if len(args) == 0 {
		args = DefaultEncoderArgs
	}
	e := &Encoder{runner: runner, binary: binary, args: args, logger: logger, workers: 1}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Encode assigns slots, encodes every file into outDir and writes the
// slot manifest. The first failure cancels the remaining work, removes
// every slot output of this run and is returned as a *sample.EncodeError.
func (e *Encoder) Encode(ctx context.Context, m *Manifest, outDir string) ([]Slot, error) {
	if e.binary == "" {
		return nil, errors.New("no encoder configured, set tools.encoder")
	}
	slots, err := AssignSlots(m, outDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, &sample.DirectoryError{Path: outDir, Cause: err}
	}

	partials := make([]string, len(slots))
	for i, s := range slots {
		partials[i] = filepath.Join(outDir, fmt.Sprintf(".%02d.partial.wav", s.Index))
	}
	defer func() {
		for _, p := range partials {
			os.Remove(p)
		}
	}()

	pool := process.NewPool(ctx, &process.PoolOptions{
		Workers:       e.workers,
		FailFast:      true,
		Logger:        e.logger,
		OnStateChange: e.onState,
	})
	for i, s := range slots {
		err := pool.Submit(SlotName(s.Index), func(ctx context.Context) error {
			return e.encodeSlot(ctx, s, partials[i])
		})
		if err != nil {
			pool.Cancel()
			pool.Wait()
			return nil, err
		}
	}

	if err := firstFailure(slots, pool.Wait()); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}

	for i, s := range slots {
		if err := os.Rename(partials[i], s.Output); err != nil {
			removeOutputs(slots[:i])
			return nil, &sample.EncodeError{Slot: s.Index, File: s.Source, Cause: err}
		}
	}
	if err := SaveSlots(outDir, slots); err != nil {
		removeOutputs(slots)
		return nil, err
	}
	e.removeStaleSlots(outDir, len(slots))

	e.logger.Info("Batch encoded", "slots", len(slots), "dir", outDir)
	return slots, nil
}

func (e *Encoder) encodeSlot(ctx context.Context, s Slot, partial string) error {
	start := time.Now()
	cmd := process.Command{
		Tool: EncoderTool,
		Path: e.binary,
		Args: expandArgs(e.args, s.Index, s.Source, partial),
	}

	_, err := e.runner.Run(ctx, cmd)
	if err == nil {
		if _, statErr := os.Stat(partial); statErr != nil {
			err = fmt.Errorf("encoder reported success but wrote no output: %w", statErr)
		}
	}

	ev := events.SlotEncoded{Slot: s.Index, Source: s.Source, Output: s.Output, Elapsed: time.Since(start)}
	if err != nil {
		ev.Error = err.Error()
		e.bus.Publish(ev)
		return &sample.EncodeError{Slot: s.Index, File: s.Source, Cause: err}
	}
	e.bus.Publish(ev)
	e.logger.Debug("Slot encoded", "slot", s.Index, "file", s.Source)
	return nil
}

// firstFailure returns the error of the lowest failed slot. Jobs cancelled
// because another slot failed are not failures of their own.
func firstFailure(slots []Slot, infos []process.Info) error {
	var cancelled error
	for i, info := range infos {
		switch info.State {
		case process.StateDone:
		case process.StateError:
			var encErr *sample.EncodeError
			if errors.As(info.LastError, &encErr) && !errors.Is(encErr.Cause, context.Canceled) {
				return encErr
			}
			if cancelled == nil {
				cancelled = &sample.EncodeError{Slot: slots[i].Index, File: slots[i].Source, Cause: info.LastError}
			}
		default:
			if cancelled == nil {
				cancelled = &sample.EncodeError{Slot: slots[i].Index, File: slots[i].Source, Cause: info.LastError}
			}
		}
	}
	return cancelled
}

// removeStaleSlots deletes slot files numbered n and above that an earlier,
// larger encode left in dir.
func (e *Encoder) removeStaleSlots(dir string, n int) {
	stale, err := scanSlots(dir)
	if err != nil {
		e.logger.Warn("Failed to scan for stale slot files", "dir", dir, "error", err)
		return
	}
	for _, s := range stale {
		if s.Index < n {
			continue
		}
		if err := os.Remove(s.Output); err != nil {
			e.logger.Warn("Failed to remove stale slot file", "file", s.Output, "error", err)
			continue
		}
		e.logger.Debug("Removed stale slot file", "file", s.Output)
	}
}

func removeOutputs(slots []Slot) {
	for _, s := range slots {
		os.Remove(s.Output)
	}
}
