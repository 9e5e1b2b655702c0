package report

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/smazurov/volcaprep/internal/batch"
	"github.com/smazurov/volcaprep/internal/sample"
)

// Upload modes.
const (
	ModeEncode   = "encode"
	ModePlayOnly = "play-only"
)

// Upload summarizes an upload run.
type Upload struct {
	Input           string       `json:"input" yaml:"input"`
	OutputDir       string       `json:"output_dir" yaml:"output_dir"`
	Mode            string       `json:"mode" yaml:"mode"`
	Count           int          `json:"count" yaml:"count"`
	SizeBytes       int64        `json:"size_bytes,omitempty" yaml:"size_bytes,omitempty"`
	DurationSeconds float64      `json:"duration_seconds,omitempty" yaml:"duration_seconds,omitempty"`
	Slots           []batch.Slot `json:"slots" yaml:"slots"`
	Played          bool         `json:"played" yaml:"played"`
}

// FromEncode builds the report of a validated and encoded batch.
func FromEncode(m *batch.Manifest, outDir string, slots []batch.Slot, played bool) *Upload {
	return &Upload{
		Input:           m.Root,
		OutputDir:       outDir,
		Mode:            ModeEncode,
		Count:           m.TotalCount,
		SizeBytes:       m.TotalSize,
		DurationSeconds: m.TotalDuration.Seconds(),
		Slots:           slots,
		Played:          played,
	}
}

// FromPlayback builds the report of a play-only run.
func FromPlayback(dir string, slots []batch.Slot) *Upload {
	u := &Upload{Input: dir, OutputDir: dir, Mode: ModePlayOnly, Count: len(slots), Slots: slots, Played: true}
	for _, s := range slots {
		u.SizeBytes += s.SizeBytes
		u.DurationSeconds += s.DurationSeconds
	}
	return u
}

// Text renders the report for a terminal.
func (u *Upload) Text(s Styles) string {
	var b strings.Builder

	title := fmt.Sprintf("Encoded %d slots", u.Count)
	if u.Mode == ModePlayOnly {
		title = fmt.Sprintf("Played %d slots", u.Count)
	}
	fmt.Fprintf(&b, "%s %s\n", s.Title.Render(title), s.Dim.Render("in "+u.OutputDir))

	if u.Mode == ModeEncode {
		limits := batch.DeviceLimits
		fmt.Fprintf(&b, "%s %d/%d samples, %s/%s, %s/%s of audio\n",
			s.Label.Render("Batch"),
			u.Count, limits.MaxCount,
			humanize.IBytes(uint64(u.SizeBytes)), humanize.IBytes(uint64(limits.MaxSize)),
			sample.FormatSeconds(seconds(u.DurationSeconds)), sample.FormatSeconds(limits.MaxDuration))
	}

	rows := make([][]string, 0, len(u.Slots))
	for _, sl := range u.Slots {
		row := []string{s.Label.Render(fmt.Sprintf("%02d", sl.Index)), filepath.Base(sl.Output)}
		if sl.Source != "" {
			row = append(row, s.Dim.Render(sl.Source))
		}
		rows = append(rows, row)
	}
	for _, l := range columns(rows) {
		b.WriteString(l + "\n")
	}

	if u.Mode == ModeEncode && !u.Played {
		fmt.Fprintf(&b, "%s\n", s.Dim.Render("Play the slots with: volcaprep upload --play-only --input "+u.OutputDir))
	}
	return b.String()
}

func seconds(f float64) time.Duration {
	return time.Duration(f * float64(time.Second))
}
