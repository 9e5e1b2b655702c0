package batch

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"

	"github.com/pelletier/go-toml/v2"
)

// SlotsFile is written next to the encoded slot files.
const SlotsFile = "slots.toml"

// MaxSlots is the number of sample slots on the device.
const MaxSlots = 100

// Slot is a sample's position in the upload sequence.
type Slot struct {
	Index           int     `toml:"slot" json:"slot" yaml:"slot"`
	Source          string  `toml:"source,omitempty" json:"source,omitempty" yaml:"source,omitempty"`
	Output          string  `toml:"output" json:"output" yaml:"output"`
	DurationSeconds float64 `toml:"duration_seconds,omitempty" json:"duration_seconds,omitempty" yaml:"duration_seconds,omitempty"`
	SizeBytes       int64   `toml:"size_bytes,omitempty" json:"size_bytes,omitempty" yaml:"size_bytes,omitempty"`
}

// SlotName is the file name of an encoded slot.
func SlotName(index int) string {
	return fmt.Sprintf("%02d.wav", index)
}

// AssignSlots numbers the manifest's files 0..N-1 in traversal order.
// Slots are fixed here, before any encoding starts.
func AssignSlots(m *Manifest, outDir string) ([]Slot, error) {
	if len(m.Files) > MaxSlots {
		return nil, fmt.Errorf("%d samples do not fit in %d slots", len(m.Files), MaxSlots)
	}
	slots := make([]Slot, len(m.Files))
	for i, f := range m.Files {
		slots[i] = Slot{
			Index:           i,
			Source:          f.Path,
			Output:          filepath.Join(outDir, SlotName(i)),
			DurationSeconds: f.Duration.Seconds(),
			SizeBytes:       f.Size,
		}
	}
	return slots, nil
}

// slotsConfig is the slots.toml layout.
type slotsConfig struct {
	Version int    `toml:"version"`
	Slots   []Slot `toml:"slot"`
}

// SaveSlots writes slots.toml into dir. Outputs are stored relative to dir.
func SaveSlots(dir string, slots []Slot) error {
	cfg := slotsConfig{Version: 1, Slots: make([]Slot, len(slots))}
	for i, s := range slots {
		s.Output = filepath.Base(s.Output)
		cfg.Slots[i] = s
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal slot manifest: %w", err)
	}

	tmp := filepath.Join(dir, "."+SlotsFile+".partial")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write slot manifest: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(dir, SlotsFile)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write slot manifest: %w", err)
	}
	return nil
}

var slotNameRe = regexp.MustCompile(`^(\d{2})\.wav$`)

// LoadSlots reads the slots in dir, ordered by index. Without slots.toml
// it falls back to NN.wav files. Output paths are absolute within dir.
func LoadSlots(dir string) ([]Slot, error) {
	data, err := os.ReadFile(filepath.Join(dir, SlotsFile))
	if errors.Is(err, fs.ErrNotExist) {
		return scanSlots(dir)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read slot manifest: %w", err)
	}

	var cfg slotsConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse slot manifest: %w", err)
	}
	for i := range cfg.Slots {
		if !filepath.IsAbs(cfg.Slots[i].Output) {
			cfg.Slots[i].Output = filepath.Join(dir, cfg.Slots[i].Output)
		}
	}
	slices.SortFunc(cfg.Slots, func(a, b Slot) int { return a.Index - b.Index })
	return cfg.Slots, nil
}

func scanSlots(dir string) ([]Slot, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var slots []Slot
	for _, e := range entries {
		m := slotNameRe.FindStringSubmatch(e.Name())
		if m == nil || !e.Type().IsRegular() {
			continue
		}
		index, _ := strconv.Atoi(m[1])
		slots = append(slots, Slot{Index: index, Output: filepath.Join(dir, e.Name())})
	}
	return slots, nil
}
