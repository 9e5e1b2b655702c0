package sample

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-audio/wav"
)

var (
	// ErrFormatMismatch is returned when a WAV header does not match the requested preset.
	ErrFormatMismatch = errors.New("wav format mismatch")
	// ErrNotWAV is returned for files without a RIFF/WAVE header.
	ErrNotWAV = errors.New("not a wav file")
)

// Format is what a WAV header says about its PCM stream.
type Format struct {
	BitDepth   int
	SampleRate int
	Channels   int
	Duration   time.Duration
}

// InspectWAV reads the header of the WAV file at path.
func InspectWAV(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return Format{}, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return Format{}, fmt.Errorf("%s: %w", path, ErrNotWAV)
	}
	d, err := dec.Duration()
	if err != nil {
		return Format{}, fmt.Errorf("%s: reading duration: %w", path, err)
	}
	return Format{
		BitDepth:   int(dec.BitDepth),
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		Duration:   d,
	}, nil
}

// Verify checks f against the preset a conversion asked for and names the
// stage responsible for a mismatch.
func (f Format) Verify(p Preset) (Stage, error) {
	if f.BitDepth != p.BitDepth {
		return StageQuantize, fmt.Errorf("%w: bit depth %d, want %d", ErrFormatMismatch, f.BitDepth, p.BitDepth)
	}
	if f.SampleRate != p.SampleRate {
		return StageQuantize, fmt.Errorf("%w: sample rate %d, want %d", ErrFormatMismatch, f.SampleRate, p.SampleRate)
	}
	if f.Channels != 1 {
		return StageDownmix, fmt.Errorf("%w: %d channels, want mono", ErrFormatMismatch, f.Channels)
	}
	return "", nil
}

// DeviceWarnings lists the ways f exceeds what the device can play.
// The encoder resamples such files itself, so these are not fatal.
func (f Format) DeviceWarnings() []string {
	var warnings []string
	if f.BitDepth > Standard.BitDepth {
		warnings = append(warnings, fmt.Sprintf("bit depth %d above %d", f.BitDepth, Standard.BitDepth))
	}
	if f.SampleRate > Standard.SampleRate {
		warnings = append(warnings, fmt.Sprintf("sample rate %d above %d", f.SampleRate, Standard.SampleRate))
	}
	if f.Channels != 1 {
		warnings = append(warnings, fmt.Sprintf("%d channels, device plays mono", f.Channels))
	}
	return warnings
}
