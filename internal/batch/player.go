package batch

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/smazurov/volcaprep/internal/events"
	"github.com/smazurov/volcaprep/internal/logging"
	"github.com/smazurov/volcaprep/internal/process"
)

// PlayerTool is the tool label used for logs and the process runner.
const PlayerTool = "player"

// Player command used when none is configured.
var (
	DefaultPlayer     = "mpv"
	DefaultPlayerArgs = []string{"--no-video", "--really-quiet", PlaceholderInput}
)

// ErrNoSlots is returned when there is nothing to play.
var ErrNoSlots = errors.New("no slot files to play")

// Player sends slot files to the device by playing them into its sync input.
type Player struct {
	runner process.Runner
	binary string
	args   []string
	logger logging.Logger
	bus    *events.Bus

	prompt io.Writer // nil skips the confirmation prompt
	input  io.Reader
}

// PlayerOption configures a Player.
type PlayerOption func(*Player)

// WithConfirmation asks the operator to press ENTER before playback.
func WithConfirmation(prompt io.Writer, input io.Reader) PlayerOption {
	return func(p *Player) {
		p.prompt = prompt
		p.input = input
	}
}

// WithPlayerEvents publishes SlotPlayed.
func WithPlayerEvents(bus *events.Bus) PlayerOption {
	return func(p *Player) { p.bus = bus }
}

// NewPlayer creates a Player. args is a template using {input} and {slot};
// an empty binary selects DefaultPlayer and DefaultPlayerArgs.
func NewPlayer(runner process.Runner, binary string, args []string, logger logging.Logger, opts ...PlayerOption) *Player {
	if binary == "" {
		binary = DefaultPlayer
		if len(args) == 0 {
			args = DefaultPlayerArgs
		}
	}
	if len(args) == 0 {
		args = []string{PlaceholderInput}
	}
	p := &Player{runner: runner, binary: binary, args: args, logger: logger}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Play plays slots one after another in slot order.
func (p *Player) Play(ctx context.Context, slots []Slot) error {
	if len(slots) == 0 {
		return ErrNoSlots
	}

	if p.prompt != nil {
		fmt.Fprintln(p.prompt, "This will play the slot files. Put the volca in a mode to receive audio on sync in.")
		fmt.Fprint(p.prompt, "Press ENTER to start.")
		if _, err := bufio.NewReader(p.input).ReadString('\n'); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("reading confirmation: %w", err)
		}
	}

	for _, s := range slots {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.logger.Info("Playing slot", "slot", s.Index, "file", s.Output)
		cmd := process.Command{
			Tool: PlayerTool,
			Path: p.binary,
			Args: expandArgs(p.args, s.Index, s.Output, ""),
		}
		if _, err := p.runner.Run(ctx, cmd); err != nil {
			return fmt.Errorf("playing slot %02d: %w", s.Index, err)
		}
		p.bus.Publish(events.SlotPlayed{Slot: s.Index, File: s.Output})
	}
	return nil
}
