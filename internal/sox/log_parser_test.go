package sox

import (
	"testing"

	"github.com/smazurov/volcaprep/internal/sample"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		line      string
		wantLevel string
		wantMsg   string
	}{
		{"sox WARN rate: rate clipped 12 samples; decrease volume?", "warning", "rate: rate clipped 12 samples; decrease volume?"},
		{"sox FAIL pad: usage: {length[@position]}", "error", "pad: usage: {length[@position]}"},
		{"sox INFO sox: Overwriting `out.wav'", "info", "sox: Overwriting `out.wav'"},
		{"sox DBUG wav: Reading Wave file", "debug", "wav: Reading Wave file"},
		{"Input File     : 'in.wav'", "debug", "Input File     : 'in.wav'"},
		{"sox", "debug", "sox"},
		{"", "debug", ""},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			level, msg := ParseLogLevel(tt.line)
			if level != tt.wantLevel || msg != tt.wantMsg {
				t.Errorf("ParseLogLevel(%q) = (%q, %q), want (%q, %q)", tt.line, level, msg, tt.wantLevel, tt.wantMsg)
			}
		})
	}
}

func TestFailedStage(t *testing.T) {
	tests := []struct {
		name     string
		output   string
		fallback sample.Stage
		want     sample.Stage
	}{
		{"speed", "sox FAIL speed: usage: factor[c]\n", sample.StageQuantize, sample.StageSpeed},
		{"rate", "sox WARN dither: dither clipped\nsox FAIL rate: cannot handle this rate\n", sample.StageSpeed, sample.StageQuantize},
		{"pad", "sox FAIL pad: usage: {length[@position]}\n", sample.StageQuantize, sample.StagePad},
		{"channels", "sox FAIL channels: invalid number of channels\n", sample.StageQuantize, sample.StageDownmix},
		{"silence", "sox FAIL silence: usage: above_periods\n", sample.StageTrim, sample.StageTrim},
		{"output file", "sox FAIL formats: can't open output file `out.wav': Permission denied\n", sample.StageQuantize, sample.StageOutput},
		{"input file", "sox FAIL formats: can't open input file `in.wav': No such file or directory\n", sample.StageSpeed, sample.StageSpeed},
		{"no fail line", "Segmentation fault\n", sample.StageTrim, sample.StageTrim},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FailedStage(tt.output, tt.fallback); got != tt.want {
				t.Errorf("FailedStage() = %q, want %q", got, tt.want)
			}
		})
	}
}
