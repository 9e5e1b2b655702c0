// Package probe measures sample durations with ffprobe.
package probe

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/smazurov/volcaprep/internal/logging"
	"github.com/smazurov/volcaprep/internal/process"
	"github.com/smazurov/volcaprep/internal/sample"
)

// ToolName is the tool label used for logs and the process runner.
const ToolName = "ffprobe"

// DurationProbe reports the playback length of a media file.
type DurationProbe interface {
	Duration(ctx context.Context, path string) (time.Duration, error)
}

// Func adapts a function to DurationProbe.
type Func func(ctx context.Context, path string) (time.Duration, error)

// Duration implements DurationProbe.
func (f Func) Duration(ctx context.Context, path string) (time.Duration, error) {
	return f(ctx, path)
}

// ErrNoDuration is returned when the report has no usable Duration field.
var ErrNoDuration = errors.New("no duration in report")

// Field layout: "Duration: 00:01:05.43, start: ...". Hours may exceed two digits.
var durationRe = regexp.MustCompile(`Duration:\s*(\S+?)(?:,|\s|$)`)
var timestampRe = regexp.MustCompile(`^(\d{2,}):([0-5]\d):([0-5]\d)(?:\.(\d{1,9}))?$`)

// FFProbe runs ffprobe through a process.Runner.
type FFProbe struct {
	runner process.Runner
	binary string
	logger logging.Logger
}

// New creates an FFProbe invoking binary (usually "ffprobe").
func New(runner process.Runner, binary string, logger logging.Logger) *FFProbe {
	if binary == "" {
		binary = ToolName
	}
	return &FFProbe{runner: runner, binary: binary, logger: logger}
}

// Duration probes path. Any failure, including a report without a strict
// HH:MM:SS[.fff] duration, is a *sample.ProbeError; zero is never returned
// in place of an error.
func (p *FFProbe) Duration(ctx context.Context, path string) (time.Duration, error) {
	res, err := p.runner.Run(ctx, process.Command{
		Tool: ToolName,
		Path: p.binary,
		Args: []string{"-hide_banner", path},
	})
	if err != nil {
		return 0, &sample.ProbeError{File: path, Cause: err}
	}

	d, err := ParseDuration(string(res.Output))
	if err != nil {
		return 0, &sample.ProbeError{File: path, Cause: err}
	}
	p.logger.Debug("Probed duration", "file", path, "duration", d)
	return d, nil
}

// ParseDuration extracts the first Duration field from an ffprobe report.
func ParseDuration(report string) (time.Duration, error) {
	m := durationRe.FindStringSubmatch(report)
	if m == nil {
		return 0, ErrNoDuration
	}
	return ParseTimestamp(m[1])
}

// ParseTimestamp parses HH:MM:SS with an optional fraction of up to nine digits.
func ParseTimestamp(ts string) (time.Duration, error) {
	m := timestampRe.FindStringSubmatch(ts)
	if m == nil {
		return 0, fmt.Errorf("%w: malformed timestamp %q", ErrNoDuration, ts)
	}

	hours, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("hours in %q: %w", ts, err)
	}
	minutes, _ := strconv.Atoi(m[2])
	seconds, _ := strconv.Atoi(m[3])

	var frac time.Duration
	if m[4] != "" {
		digits := m[4] + strings.Repeat("0", 9-len(m[4]))
		ns, _ := strconv.Atoi(digits)
		frac = time.Duration(ns)
	}

	return time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		frac, nil
}
