// Package sampletest writes small WAV fixtures for tests.
package sampletest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WriteWAV writes a silent PCM WAV of the given shape and length to path,
// creating parent directories as needed.
func WriteWAV(t testing.TB, path string, bitDepth, sampleRate, channels int, d time.Duration) {
	t.Helper()
	if err := Write(path, bitDepth, sampleRate, channels, d); err != nil {
		t.Fatalf("writing wav fixture %s: %v", path, err)
	}
}

// Write is WriteWAV for callers without a testing.TB, such as fake tools
// running inside a Runner.
func Write(path string, bitDepth, sampleRate, channels int, d time.Duration) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	frames := int(d.Seconds() * float64(sampleRate))
	enc := wav.NewEncoder(f, sampleRate, bitDepth, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           make([]int, frames*channels),
		SourceBitDepth: bitDepth,
	}
	if bitDepth == 8 {
		// 8-bit PCM is unsigned; 128 is silence.
		for i := range buf.Data {
			buf.Data[i] = 128
		}
	}
	if err := enc.Write(buf); err != nil {
		f.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
