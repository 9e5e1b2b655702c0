package sox

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/smazurov/volcaprep/internal/sample"
)

func TestTrimArgs(t *testing.T) {
	want := []string{
		"--no-show-progress", "-V2",
		"in.flac", "-t", "wav", ".in.trim.wav",
		"silence", "1", "0.1", "1%", "reverse",
		"silence", "1", "0.1", "1%", "reverse",
	}
	if diff := cmp.Diff(want, TrimArgs("in.flac", ".in.trim.wav")); diff != "" {
		t.Errorf("TrimArgs mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildArgs(t *testing.T) {
	tests := []struct {
		name   string
		spec   sample.ConversionSpec
		pad    time.Duration
		effect []string
		format []string
	}{
		{
			name:   "standard",
			spec:   sample.ConversionSpec{},
			effect: []string{"rate", "31250", "channels", "1"},
			format: []string{"-b", "16", "-r", "31250"},
		},
		{
			name:   "low quality",
			spec:   sample.ConversionSpec{LowQuality: true},
			effect: []string{"rate", "22050", "channels", "1"},
			format: []string{"-b", "8", "-r", "22050"},
		},
		{
			name:   "everything",
			spec:   sample.ConversionSpec{SpeedupFactor: 3, AddPadding: true},
			pad:    time.Second,
			effect: []string{"speed", "3", "rate", "31250", "pad", "0", "1", "channels", "1"},
			format: []string{"-b", "16", "-r", "31250"},
		},
		{
			name:   "fractional pad",
			spec:   sample.ConversionSpec{AddPadding: true, LowQuality: true},
			pad:    10 * time.Second / 9,
			effect: []string{"rate", "22050", "pad", "0", "1.111111", "channels", "1"},
			format: []string{"-b", "8", "-r", "22050"},
		},
		{
			name:   "padding disabled ignores pad",
			spec:   sample.ConversionSpec{},
			pad:    time.Second,
			effect: []string{"rate", "31250", "channels", "1"},
			format: []string{"-b", "16", "-r", "31250"},
		},
		{
			name:   "speed factor one",
			spec:   sample.ConversionSpec{SpeedupFactor: 1},
			effect: []string{"rate", "31250", "channels", "1"},
			format: []string{"-b", "16", "-r", "31250"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildArgs(NewParams("in.wav", "out.wav", tt.spec, tt.pad))

			want := []string{"--no-show-progress", "-V2", "in.wav", "-t", "wav"}
			want = append(want, tt.format...)
			want = append(want, "out.wav")
			want = append(want, tt.effect...)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("BuildArgs mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStagesOrder(t *testing.T) {
	tests := []struct {
		name string
		spec sample.ConversionSpec
		want []sample.Stage
	}{
		{"minimal", sample.ConversionSpec{}, []sample.Stage{sample.StageQuantize, sample.StageDownmix}},
		{"default", sample.DefaultConversionSpec(), []sample.Stage{sample.StageTrim, sample.StageQuantize, sample.StageDownmix}},
		{
			"all",
			sample.ConversionSpec{TrimSilence: true, SpeedupFactor: 3, AddPadding: true, LowQuality: true},
			[]sample.Stage{sample.StageTrim, sample.StageSpeed, sample.StageQuantize, sample.StagePad, sample.StageDownmix},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Stages(tt.spec)); diff != "" {
				t.Errorf("Stages mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
