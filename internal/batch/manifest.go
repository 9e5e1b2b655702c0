// Package batch validates a folder of prepared samples against the
// device's aggregate limits, encodes it slot by slot and plays the result.
package batch

import (
	"time"

	"github.com/smazurov/volcaprep/internal/sample"
)

// Limits are the device's aggregate constraints.
type Limits struct {
	MaxCount    int
	MaxSize     int64
	MaxDuration time.Duration
}

// DeviceLimits describes the volca sample: 100 slots, 4 MiB, 65 s.
var DeviceLimits = Limits{
	MaxCount:    100,
	MaxSize:     4 * 1024 * 1024,
	MaxDuration: 65 * time.Second,
}

// Manifest is every sample in a directory, in traversal order, with the
// totals computed over all of them.
type Manifest struct {
	Root          string
	Files         []sample.File
	TotalCount    int
	TotalSize     int64
	TotalDuration time.Duration
}

// NewManifest reduces files into a manifest. Durations must already be probed.
func NewManifest(root string, files []sample.File) *Manifest {
	m := &Manifest{Root: root, Files: files, TotalCount: len(files)}
	for _, f := range files {
		m.TotalSize += f.Size
		m.TotalDuration += f.Duration
	}
	return m
}

// Check evaluates count, size and duration in that order and returns the
// first violation. Values equal to a limit pass.
func (m *Manifest) Check(l Limits) error {
	if m.TotalCount > l.MaxCount {
		return &sample.ValidationError{Constraint: sample.ConstraintCount, Measured: int64(m.TotalCount), Limit: int64(l.MaxCount)}
	}
	if m.TotalSize > l.MaxSize {
		return &sample.ValidationError{Constraint: sample.ConstraintSize, Measured: m.TotalSize, Limit: l.MaxSize}
	}
	if m.TotalDuration > l.MaxDuration {
		return &sample.ValidationError{Constraint: sample.ConstraintDuration, Measured: int64(m.TotalDuration), Limit: int64(l.MaxDuration)}
	}
	return nil
}
