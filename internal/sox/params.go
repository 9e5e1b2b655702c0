package sox

import (
	"time"

	"github.com/smazurov/volcaprep/internal/sample"
)

// Silence detection thresholds used by the trim pass: audio below
// TrimThreshold of full scale for at least TrimMinDuration.
const (
	TrimMinDuration = "0.1"
	TrimThreshold   = "1%"
)

// Params describes the main conversion invocation for one file. The trim
// pass is separate and runs first.
type Params struct {
	Input  string
	Output string
	Speed  float64 // 0 or 1 leaves speed unchanged
	Preset sample.Preset
	Pad    time.Duration // trailing silence, 0 for none
}

// NewParams derives the main invocation from a conversion spec.
func NewParams(input, output string, spec sample.ConversionSpec, pad time.Duration) *Params {
	p := &Params{
		Input:  input,
		Output: output,
		Preset: spec.Preset(),
	}
	if spec.SpeedUp() {
		p.Speed = spec.SpeedupFactor
	}
	if spec.AddPadding {
		p.Pad = pad
	}
	return p
}

// Stages lists the transform stages a spec enables, in execution order.
func Stages(spec sample.ConversionSpec) []sample.Stage {
	var stages []sample.Stage
	if spec.TrimSilence {
		stages = append(stages, sample.StageTrim)
	}
	if spec.SpeedUp() {
		stages = append(stages, sample.StageSpeed)
	}
	stages = append(stages, sample.StageQuantize)
	if spec.AddPadding {
		stages = append(stages, sample.StagePad)
	}
	return append(stages, sample.StageDownmix)
}
