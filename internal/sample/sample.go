package sample

import (
	"fmt"
	"time"
)

// File is a single audio asset discovered on disk.
type File struct {
	Path     string        // absolute or caller-relative path
	Rel      string        // path relative to the walked root, slash separated
	Size     int64         // bytes
	Duration time.Duration // zero until probed
}

// Preset is one of the two bit depth / sample rate pairs the device accepts.
type Preset struct {
	Name       string
	BitDepth   int
	SampleRate int
}

var (
	// Standard is the device ceiling.
	Standard = Preset{Name: "standard", BitDepth: 16, SampleRate: 31250}
	// LowQuality trades fidelity for more audio within the storage budget.
	LowQuality = Preset{Name: "lq", BitDepth: 8, SampleRate: 22050}
)

func (p Preset) String() string {
	return fmt.Sprintf("%d-bit/%d Hz", p.BitDepth, p.SampleRate)
}

// ConversionSpec is the recipe applied to every file of one convert run.
// It is built once from flags and only read afterwards.
type ConversionSpec struct {
	TrimSilence   bool
	SpeedupFactor float64 // 0 leaves speed unchanged
	LowQuality    bool
	AddPadding    bool
}

// DefaultConversionSpec trims silence and keeps the standard preset.
func DefaultConversionSpec() ConversionSpec {
	return ConversionSpec{TrimSilence: true}
}

// Preset returns the bit depth / sample rate pair to convert to. There is
// no way to request anything other than the two device presets.
func (s ConversionSpec) Preset() Preset {
	if s.LowQuality {
		return LowQuality
	}
	return Standard
}

// SpeedUp reports whether a speed change is requested.
func (s ConversionSpec) SpeedUp() bool {
	return s.SpeedupFactor > 0 && s.SpeedupFactor != 1
}

// ForceMono is always true: the device only plays mono samples.
func (s ConversionSpec) ForceMono() bool { return true }

// Validate rejects factors sox cannot apply.
func (s ConversionSpec) Validate() error {
	if s.SpeedupFactor < 0 {
		return fmt.Errorf("speed-up factor must be positive, got %g", s.SpeedupFactor)
	}
	return nil
}

// PaddingRatio is the share of a sample's length appended as trailing
// silence. The device never addresses the last ninth of the sample space.
const PaddingRatio = 9

// ComputePadding returns the trailing silence for a signal of length d.
func ComputePadding(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d / PaddingRatio
}

// PaddingPlan is the silence added around one converted sample.
type PaddingPlan struct {
	Lead  time.Duration
	Trail time.Duration
}

// PlanPadding derives the plan for a signal of length d. Lead is always zero.
func PlanPadding(d time.Duration) PaddingPlan {
	return PaddingPlan{Trail: ComputePadding(d)}
}
