package process

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/smazurov/volcaprep/internal/logging"
)

// ErrTimeout is returned (wrapped) when an invocation exceeds its time budget.
var ErrTimeout = errors.New("process timed out")

// OutputHandler receives output lines from the subprocess.
type OutputHandler interface {
	HandleLine(tool, source, line string)
}

// LogParser parses a log line and returns the log level and message.
// Used to extract structured log info from tool output (sox, ffprobe, etc.)
type LogParser func(line string) (level, msg string)

// Command is a single external tool invocation.
type Command struct {
	Tool string // short tool name used for logging, e.g. "sox"
	Path string // executable
	Args []string
}

// String renders the command line with shell-style quoting, for logs only.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, quoteArg(c.Path))
	for _, a := range c.Args {
		parts = append(parts, quoteArg(a))
	}
	return strings.Join(parts, " ")
}

func quoteArg(s string) string {
	if s == "" {
		return "''"
	}
	if strings.ContainsAny(s, " \t\n'\"\\$%") {
		return strconv.Quote(s)
	}
	return s
}

// Result describes a finished invocation.
type Result struct {
	ExitCode int
	Output   []byte // stdout and stderr interleaved in arrival order
	Elapsed  time.Duration
}

// ExitError reports a tool that ran and exited non-zero.
type ExitError struct {
	Command Command
	Code    int
	Output  string // last lines of output
}

func (e *ExitError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("%s exited with code %d", e.Command.Tool, e.Code)
	}
	return fmt.Sprintf("%s exited with code %d: %s", e.Command.Tool, e.Code, e.Output)
}

// Runner executes external commands. It is the seam tests replace with fakes.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, cmd Command) (*Result, error)

// Run implements Runner.
func (f RunnerFunc) Run(ctx context.Context, cmd Command) (*Result, error) {
	return f(ctx, cmd)
}

// Executor runs commands as subprocesses. Each invocation gets its own
// process group so a stop signal reaches children the tool spawned.
type Executor struct {
	logger          logging.Logger
	toolLogger      func(tool string) logging.Logger
	parsers         map[string]LogParser
	outputHandler   OutputHandler
	timeout         time.Duration // per invocation, 0 = none
	gracefulTimeout time.Duration // timeout for graceful shutdown before force kill
	killTimeout     time.Duration // timeout after Kill() before giving up
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithTimeout bounds every invocation.
func WithTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) { e.timeout = d }
}

// WithLogParser sets the parser used for a tool's output lines.
func WithLogParser(tool string, parser LogParser) ExecutorOption {
	return func(e *Executor) { e.parsers[tool] = parser }
}

// WithToolLoggers routes tool output to a per-tool logger (e.g. module="sox").
func WithToolLoggers(fn func(tool string) logging.Logger) ExecutorOption {
	return func(e *Executor) { e.toolLogger = fn }
}

// WithOutputHandler receives every output line.
func WithOutputHandler(h OutputHandler) ExecutorOption {
	return func(e *Executor) { e.outputHandler = h }
}

// NewExecutor creates an Executor.
func NewExecutor(logger logging.Logger, opts ...ExecutorOption) *Executor {
	e := &Executor{
		logger:          logger,
		parsers:         make(map[string]LogParser),
		gracefulTimeout: 5 * time.Second,
		killTimeout:     5 * time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// lockedBuffer collects output from both streams.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) writeLine(line string) {
	b.mu.Lock()
	b.buf.WriteString(line)
	b.buf.WriteByte('\n')
	b.mu.Unlock()
}

func (b *lockedBuffer) bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return bytes.Clone(b.buf.Bytes())
}

// Run starts the command and blocks until it exits, the timeout elapses or
// ctx is cancelled. On timeout or cancellation the process group receives
// SIGINT, then SIGKILL after the graceful timeout.
func (e *Executor) Run(ctx context.Context, command Command) (*Result, error) {
	if command.Path == "" {
		return nil, fmt.Errorf("empty command for %s", command.Tool)
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, e.timeout, ErrTimeout)
		defer cancel()
	}

	cmd := exec.Command(command.Path, command.Args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		e.logger.Error("Failed to start process", "tool", command.Tool, "error", err, "command", command.String())
		return nil, fmt.Errorf("start %s: %w", command.Tool, err)
	}
	e.logger.Debug("Process started", "tool", command.Tool, "pid", cmd.Process.Pid, "command", command.String())

	var output lockedBuffer
	outputDone := make(chan struct{}, 2)
	go func() {
		e.streamOutput(command.Tool, stdout, "stdout", &output)
		outputDone <- struct{}{}
	}()
	go func() {
		e.streamOutput(command.Tool, stderr, "stderr", &output)
		outputDone <- struct{}{}
	}()

	// Pipes must be drained before Wait returns, see exec.Cmd.StdoutPipe.
	processDone := make(chan error, 1)
	go func() {
		<-outputDone
		<-outputDone
		processDone <- cmd.Wait()
	}()

	var exitCode int
	var stopErr error
	select {
	case <-ctx.Done():
		stopErr = context.Cause(ctx)
		e.logger.Warn("Stopping process", "tool", command.Tool, "pid", cmd.Process.Pid, "reason", stopErr)
		e.sendStopSignal(cmd)
		exitCode = e.waitForExit(cmd, processDone)
	case processErr := <-processDone:
		exitCode = e.handleProcessExit(command.Tool, processErr)
	}

	result := &Result{ExitCode: exitCode, Output: output.bytes(), Elapsed: time.Since(start)}

	switch {
	case stopErr != nil && errors.Is(stopErr, ErrTimeout):
		return result, fmt.Errorf("%s after %s: %w", command.Tool, e.timeout, ErrTimeout)
	case stopErr != nil:
		return result, stopErr
	case exitCode != 0:
		return result, &ExitError{Command: command, Code: exitCode, Output: tail(result.Output, 3)}
	}
	return result, nil
}

// exitCodeFromError extracts exit code from process error.
// Returns 0 for nil error, the exit code for ExitError, or 1 for other errors.
func exitCodeFromError(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return 1
}

// handleProcessExit extracts exit code from process error and logs non-ExitError errors.
func (e *Executor) handleProcessExit(tool string, processErr error) int {
	exitCode := exitCodeFromError(processErr)
	if processErr != nil && exitCode == 1 {
		var exitErr *exec.ExitError
		if !errors.As(processErr, &exitErr) {
			e.logger.Error("Process exited with error", "tool", tool, "error", processErr)
		}
	}
	return exitCode
}

// sendStopSignal sends SIGINT to the subprocess group without waiting.
func (e *Executor) sendStopSignal(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGINT); err != nil && !errors.Is(err, syscall.ESRCH) {
		e.logger.Warn("Failed to send SIGINT", "pid", cmd.Process.Pid, "error", err)
	}
}

// waitForExit waits for the process to exit, force-killing the group if needed.
func (e *Executor) waitForExit(cmd *exec.Cmd, processDone <-chan error) int {
	select {
	case err := <-processDone:
		return exitCodeFromError(err)
	case <-time.After(e.gracefulTimeout):
		e.logger.Warn("Graceful shutdown timeout, forcing kill", "timeout", e.gracefulTimeout)
		if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
			if killErr := cmd.Process.Kill(); killErr != nil && !errors.Is(killErr, os.ErrProcessDone) {
				e.logger.Error("Failed to kill process", "error", killErr)
			}
		}
		select {
		case <-processDone:
		case <-time.After(e.killTimeout):
			e.logger.Error("Process did not exit after kill signal")
		}
		return 137
	}
}

// streamOutput logs each line through the tool's parser and records it.
func (e *Executor) streamOutput(tool string, reader io.Reader, source string, sink *lockedBuffer) {
	scanner := bufio.NewScanner(reader)

	logger := e.logger
	if e.toolLogger != nil {
		logger = e.toolLogger(tool)
	}
	parser := e.parsers[tool]

	for scanner.Scan() {
		line := scanner.Text()
		sink.writeLine(line)

		if e.outputHandler != nil {
			e.outputHandler.HandleLine(tool, source, line)
		}

		level, msg := "debug", line
		if parser != nil {
			level, msg = parser(line)
		}
		if msg == "" {
			continue
		}

		switch level {
		case "fatal", "error":
			logger.Error(msg)
		case "warning", "warn":
			logger.Warn(msg)
		case "info":
			logger.Info(msg)
		default:
			logger.Debug(msg)
		}
	}

	if err := scanner.Err(); err != nil {
		e.logger.Warn("Error reading output", "tool", tool, "source", source, "error", err)
	}
}

// tail returns the last n non-empty lines of out joined by "; ".
func tail(out []byte, n int) string {
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	kept := make([]string, 0, n)
	for i := len(lines) - 1; i >= 0 && len(kept) < n; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			kept = append(kept, l)
		}
	}
	for i, j := 0, len(kept)-1; i < j; i, j = i+1, j-1 {
		kept[i], kept[j] = kept[j], kept[i]
	}
	return strings.Join(kept, "; ")
}
