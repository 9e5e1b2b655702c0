package events

import "time"

// Event type constants for kelindar/event.
const (
	TypeSampleConverted uint32 = iota + 1
	TypeSampleFailed
	TypeBatchValidated
	TypeSlotEncoded
	TypeSlotPlayed
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// SampleConverted is published when one file finished converting.
type SampleConverted struct {
	Source   string        `json:"source"`
	Output   string        `json:"output"`
	Duration time.Duration `json:"duration"`
	Padding  time.Duration `json:"padding"`
	Elapsed  time.Duration `json:"elapsed"`
}

// Type returns the event type identifier for SampleConverted.
func (e SampleConverted) Type() uint32 { return TypeSampleConverted }

// SampleFailed is published when a file was skipped after a failed stage.
type SampleFailed struct {
	Source string `json:"source"`
	Stage  string `json:"stage"`
	Error  string `json:"error"`
}

// Type returns the event type identifier for SampleFailed.
func (e SampleFailed) Type() uint32 { return TypeSampleFailed }

// BatchValidated is published after the aggregate checks ran, pass or fail.
type BatchValidated struct {
	Count     int           `json:"count"`
	SizeBytes int64         `json:"size_bytes"`
	Duration  time.Duration `json:"duration"`
	Violation string        `json:"violation,omitempty"`
}

// Type returns the event type identifier for BatchValidated.
func (e BatchValidated) Type() uint32 { return TypeBatchValidated }

// SlotEncoded is published for each slot the encoder produced.
type SlotEncoded struct {
	Slot    int           `json:"slot"`
	Source  string        `json:"source"`
	Output  string        `json:"output"`
	Elapsed time.Duration `json:"elapsed"`
	Error   string        `json:"error,omitempty"`
}

// Type returns the event type identifier for SlotEncoded.
func (e SlotEncoded) Type() uint32 { return TypeSlotEncoded }

// SlotPlayed is published after a slot file was played to the device.
type SlotPlayed struct {
	Slot int    `json:"slot"`
	File string `json:"file"`
}

// Type returns the event type identifier for SlotPlayed.
func (e SlotPlayed) Type() uint32 { return TypeSlotPlayed }
