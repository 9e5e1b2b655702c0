package report

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/smazurov/volcaprep/internal/sample"
	"github.com/smazurov/volcaprep/internal/transform"
)

// ConvertedSample is one written output.
type ConvertedSample struct {
	Source          string  `json:"source" yaml:"source"`
	Output          string  `json:"output" yaml:"output"`
	DurationSeconds float64 `json:"duration_seconds" yaml:"duration_seconds"`
	PaddingSeconds  float64 `json:"padding_seconds,omitempty" yaml:"padding_seconds,omitempty"`
}

// FailedSample is a skipped input.
type FailedSample struct {
	Source string `json:"source" yaml:"source"`
	Stage  string `json:"stage,omitempty" yaml:"stage,omitempty"`
	Error  string `json:"error" yaml:"error"`
}

// Convert summarizes a convert run.
type Convert struct {
	Input         string            `json:"input" yaml:"input"`
	OutputDir     string            `json:"output_dir" yaml:"output_dir"`
	Preset        string            `json:"preset" yaml:"preset"`
	SpeedupFactor float64           `json:"speedup_factor,omitempty" yaml:"speedup_factor,omitempty"`
	Converted     []ConvertedSample `json:"converted" yaml:"converted"`
	Failed        []FailedSample    `json:"failed,omitempty" yaml:"failed,omitempty"`
}

// FromTransform builds the convert report of a pipeline result.
func FromTransform(input, outDir string, spec sample.ConversionSpec, r *transform.Result) *Convert {
	c := &Convert{
		Input:         input,
		OutputDir:     outDir,
		Preset:        spec.Preset().String(),
		SpeedupFactor: r.SpeedupFactor,
		Converted:     make([]ConvertedSample, 0, len(r.Converted)),
	}
	for _, s := range r.Converted {
		c.Converted = append(c.Converted, ConvertedSample{
			Source:          s.Source,
			Output:          s.Output,
			DurationSeconds: s.Format.Duration.Seconds(),
			PaddingSeconds:  s.Padding.Seconds(),
		})
	}
	for _, f := range r.Failed {
		fs := FailedSample{Source: f.Source, Error: f.Err.Error()}
		var te *sample.TransformError
		if errors.As(f.Err, &te) {
			fs.Stage = string(te.Stage)
			if te.Cause != nil {
				fs.Error = te.Cause.Error()
			}
		}
		c.Failed = append(c.Failed, fs)
	}
	return c
}

// Text renders the report for a terminal.
func (c *Convert) Text(s Styles) string {
	total := len(c.Converted) + len(c.Failed)
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n",
		s.Title.Render(fmt.Sprintf("Converted %d of %d samples", len(c.Converted), total)),
		s.Dim.Render(fmt.Sprintf("(%s, mono) into %s", c.Preset, c.OutputDir)))

	if len(c.Converted) > 0 {
		rows := make([][]string, 0, len(c.Converted))
		for _, cs := range c.Converted {
			pad := ""
			if cs.PaddingSeconds > 0 {
				pad = s.Dim.Render("pad " + sample.FormatSeconds(seconds(cs.PaddingSeconds)))
			}
			rows = append(rows, []string{filepath.Base(cs.Output), sample.FormatSeconds(seconds(cs.DurationSeconds)), pad})
		}
		for _, l := range columns(rows) {
			b.WriteString(strings.TrimRight(l, " ") + "\n")
		}
	}

	if len(c.Failed) > 0 {
		b.WriteString(s.Error.Render(fmt.Sprintf("Failed %d", len(c.Failed))) + "\n")
		rows := make([][]string, 0, len(c.Failed))
		for _, f := range c.Failed {
			stage := ""
			if f.Stage != "" {
				stage = s.Label.Render(f.Stage)
			}
			rows = append(rows, []string{f.Source, stage, f.Error})
		}
		for _, l := range columns(rows) {
			b.WriteString(l + "\n")
		}
	}

	if c.SpeedupFactor > 0 {
		fmt.Fprintf(&b, "%s\n", s.Dim.Render(fmt.Sprintf(
			"Samples were sped up %gx. Lower the playback speed on the device by the same factor.", c.SpeedupFactor)))
	}
	return b.String()
}
