package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/smazurov/volcaprep/internal/events"
	"github.com/smazurov/volcaprep/internal/probe"
	"github.com/smazurov/volcaprep/internal/sample"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeSized(t *testing.T, path string, size int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatal(err)
	}
}

// durations returns a probe answering from a table keyed by base name,
// with def for everything else.
func durations(table map[string]time.Duration, def time.Duration) probe.Func {
	return func(_ context.Context, path string) (time.Duration, error) {
		if d, ok := table[filepath.Base(path)]; ok {
			return d, nil
		}
		return def, nil
	}
}

func makeBatch(t *testing.T, n, size int) string {
	t.Helper()
	dir := t.TempDir()
	for i := range n {
		writeSized(t, filepath.Join(dir, fmt.Sprintf("%03d.wav", i)), size)
	}
	return dir
}

func violation(t *testing.T, err error) sample.Constraint {
	t.Helper()
	if err == nil {
		return ""
	}
	var ve *sample.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("error = %v, want *sample.ValidationError", err)
	}
	return ve.Constraint
}

func TestValidateCountBoundary(t *testing.T) {
	tests := []struct {
		files int
		want  sample.Constraint
	}{
		{100, ""},
		{101, sample.ConstraintCount},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.files), func(t *testing.T) {
			dir := makeBatch(t, tt.files, 10)
			v := NewValidator(durations(nil, 100*time.Millisecond), testLogger(), WithProbeWorkers(8))
			m, err := v.Validate(context.Background(), dir)
			if got := violation(t, err); got != tt.want {
				t.Errorf("violation = %q, want %q", got, tt.want)
			}
			if m == nil || m.TotalCount != tt.files {
				t.Errorf("manifest = %+v", m)
			}
		})
	}
}

func TestValidateSizeBoundary(t *testing.T) {
	const limit = 4 * 1024 * 1024
	tests := []struct {
		name  string
		sizes []int
		want  sample.Constraint
	}{
		{"exactly 4 MiB", []int{limit / 2, limit / 2}, ""},
		{"one byte over", []int{limit / 2, limit/2 + 1}, sample.ConstraintSize},
		{"well under", []int{4096, 4097}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for i, size := range tt.sizes {
				writeSized(t, filepath.Join(dir, fmt.Sprintf("sub%d", i), "s.wav"), size)
			}
			m, err := NewValidator(durations(nil, time.Second), testLogger()).Validate(context.Background(), dir)
			if got := violation(t, err); got != tt.want {
				t.Errorf("violation = %q, want %q (total %d bytes)", got, tt.want, m.TotalSize)
			}
		})
	}
}

func TestValidateDurationBoundary(t *testing.T) {
	tests := []struct {
		name   string
		second time.Duration
		want   sample.Constraint
	}{
		{"exactly 65s", 35 * time.Second, ""},
		{"just over", 35*time.Second + time.Millisecond, sample.ConstraintDuration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeSized(t, filepath.Join(dir, "a.wav"), 10)
			writeSized(t, filepath.Join(dir, "nested", "b.wav"), 10)
			pr := durations(map[string]time.Duration{"a.wav": 30 * time.Second, "b.wav": tt.second}, 0)

			_, err := NewValidator(pr, testLogger()).Validate(context.Background(), dir)
			if got := violation(t, err); got != tt.want {
				t.Errorf("violation = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidateChecksInFixedOrder(t *testing.T) {
	// Over every limit at once: count is reported.
	dir := makeBatch(t, 101, 64*1024)
	_, err := NewValidator(durations(nil, time.Second), testLogger()).Validate(context.Background(), dir)
	if got := violation(t, err); got != sample.ConstraintCount {
		t.Errorf("violation = %q, want count", got)
	}

	// Count fine, size and duration over: size is reported.
	dir = makeBatch(t, 100, 64*1024)
	_, err = NewValidator(durations(nil, time.Second), testLogger()).Validate(context.Background(), dir)
	if got := violation(t, err); got != sample.ConstraintSize {
		t.Errorf("violation = %q, want size", got)
	}
}

func TestValidateReducesWholeTree(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a/1.wav", "a/2.wav", "b/3.wav", "b/c/4.wav", "5.wav"} {
		writeSized(t, filepath.Join(dir, name), 100)
	}
	var probed atomic.Int32
	pr := probe.Func(func(context.Context, string) (time.Duration, error) {
		probed.Add(1)
		return 20 * time.Second, nil
	})

	m, err := NewValidator(pr, testLogger()).Validate(context.Background(), dir)
	if got := violation(t, err); got != sample.ConstraintDuration {
		t.Errorf("violation = %q, want duration over all 5 files", got)
	}
	if probed.Load() != 5 || m.TotalDuration != 100*time.Second || m.TotalSize != 500 {
		t.Errorf("probed %d files, manifest %+v", probed.Load(), m)
	}
}

func TestValidateScenario(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"1-kick.wav", "2-pad.wav", "3-snare.wav"} {
		writeSized(t, filepath.Join(dir, name), 32*1024)
	}
	pr := durations(map[string]time.Duration{
		"1-kick.wav":  10 * time.Second,
		"2-pad.wav":   20 * time.Second,
		"3-snare.wav": 10 * time.Second,
	}, 0)

	bus := events.New()
	got := make(chan events.BatchValidated, 1)
	unsub := bus.Subscribe(func(e events.BatchValidated) { got <- e })
	defer unsub()

	m, err := NewValidator(pr, testLogger(), WithProbeWorkers(3), WithValidatorEvents(bus)).Validate(context.Background(), dir)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if m.TotalCount != 3 || m.TotalDuration != 40*time.Second {
		t.Errorf("manifest totals = %d files, %v", m.TotalCount, m.TotalDuration)
	}

	var order []string
	for _, f := range m.Files {
		order = append(order, f.Rel)
	}
	if diff := cmp.Diff([]string{"1-kick.wav", "2-pad.wav", "3-snare.wav"}, order); diff != "" {
		t.Errorf("traversal order mismatch (-want +got):\n%s", diff)
	}

	ev := <-got
	if ev.Count != 3 || ev.Violation != "" || ev.Duration != 40*time.Second {
		t.Errorf("event = %+v", ev)
	}
}

func TestValidateProbeFailureIsFatal(t *testing.T) {
	dir := makeBatch(t, 3, 10)
	pr := probe.Func(func(_ context.Context, path string) (time.Duration, error) {
		if filepath.Base(path) == "001.wav" {
			return 0, &sample.ProbeError{File: path, Cause: probe.ErrNoDuration}
		}
		return time.Second, nil
	})

	m, err := NewValidator(pr, testLogger(), WithProbeWorkers(2)).Validate(context.Background(), dir)
	var pe *sample.ProbeError
	if !errors.As(err, &pe) || filepath.Base(pe.File) != "001.wav" {
		t.Fatalf("error = %v, want ProbeError for 001.wav", err)
	}
	if m != nil {
		t.Error("no manifest should be returned when a probe fails")
	}
}

func TestValidateSkipsNestedOutputDir(t *testing.T) {
	dir := makeBatch(t, 3, 10)
	out := filepath.Join(dir, "upload")
	pr := durations(nil, time.Second)

	m, err := NewValidator(pr, testLogger(), WithOutputDir(out)).Validate(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewEncoder(&fakeEncoder{}, "makesyro", nil, testLogger()).Encode(context.Background(), m, out); err != nil {
		t.Fatal(err)
	}

	again, err := NewValidator(pr, testLogger(), WithOutputDir(out)).Validate(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if again.TotalCount != 3 || again.TotalSize != 30 || again.TotalDuration != 3*time.Second {
		t.Errorf("second run totals = %d files, %d bytes, %v", again.TotalCount, again.TotalSize, again.TotalDuration)
	}

	// An output folder outside the batch does not filter anything.
	m, err = NewValidator(pr, testLogger(), WithOutputDir(t.TempDir())).Validate(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if m.TotalCount != 7 {
		t.Errorf("count without a nested output dir = %d, want 7", m.TotalCount)
	}
}

func TestValidateRejectsNonDirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "x.wav")
	writeSized(t, file, 1)
	v := NewValidator(durations(nil, time.Second), testLogger())

	for _, path := range []string{file, filepath.Join(t.TempDir(), "missing")} {
		_, err := v.Validate(context.Background(), path)
		var invalid *sample.InvalidInputError
		if !errors.As(err, &invalid) {
			t.Errorf("Validate(%s) = %v, want InvalidInputError", path, err)
		}
	}
}

func TestManifestCheckCustomLimits(t *testing.T) {
	m := NewManifest("x", []sample.File{{Size: 10, Duration: time.Second}, {Size: 10, Duration: time.Second}})
	if err := m.Check(Limits{MaxCount: 2, MaxSize: 20, MaxDuration: 2 * time.Second}); err != nil {
		t.Errorf("at-limit manifest rejected: %v", err)
	}
	if got := violation(t, m.Check(Limits{MaxCount: 1, MaxSize: 20, MaxDuration: 2 * time.Second})); got != sample.ConstraintCount {
		t.Errorf("violation = %q", got)
	}
}
