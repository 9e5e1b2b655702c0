package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/smazurov/volcaprep/internal/batch"
	"github.com/smazurov/volcaprep/internal/logging"
	"github.com/smazurov/volcaprep/internal/report"
	"github.com/smazurov/volcaprep/internal/sample"
)

// CreateUploadCmd creates the upload command.
func CreateUploadCmd(opts *Options) *cobra.Command {
	var (
		input     string
		output    string
		playAfter bool
		playOnly  bool
		yes       bool
	)

	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Validate a sample folder and encode it into device slots",
		Long: `Checks a folder of prepared samples against the volca sample limits
(100 samples, 4 MiB, 65 seconds of audio), then runs the vendor encoder once
per sample to produce slot files 00.wav, 01.wav, ... and a slots.toml manifest.
Nothing is written unless every slot encodes.

With --play-only, validation and encoding are skipped and the slot files in
--input are played for transfer over the sync input.`,
		Args: cobra.NoArgs,
		PreRunE: func(*cobra.Command, []string) error {
			info, err := os.Stat(input)
			if err != nil {
				return &sample.InvalidInputError{Path: input, Reason: "does not exist", Cause: err}
			}
			if !info.IsDir() {
				return &sample.InvalidInputError{Path: input, Reason: "not a directory"}
			}
			if playOnly {
				return nil
			}
			if output == "" {
				abs, err := filepath.Abs(input)
				if err != nil {
					return &sample.InvalidInputError{Path: input, Reason: "cannot resolve path", Cause: err}
				}
				output = abs + "_upload"
			}
			if sample.SameDir(input, output) {
				return &sample.InvalidInputError{Path: output, Reason: "output folder is the input folder"}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			var playerOpts []batch.PlayerOption
			playerOpts = append(playerOpts, batch.WithPlayerEvents(a.bus))
			if !yes {
				playerOpts = append(playerOpts, batch.WithConfirmation(cmd.ErrOrStderr(), cmd.InOrStdin()))
			}
			player := batch.NewPlayer(a.runner, opts.PlayerPath, opts.PlayerArgs, logging.GetLogger(batch.PlayerTool), playerOpts...)

			if playOnly {
				slots, err := batch.LoadSlots(input)
				if err != nil {
					return err
				}
				if err := player.Play(ctx, slots); err != nil {
					return err
				}
				return report.Write(out, a.format, report.FromPlayback(input, slots))
			}

			validator := batch.NewValidator(a.probe(), logging.GetLogger("batch"),
				batch.WithProbeWorkers(opts.Workers),
				batch.WithValidatorEvents(a.bus),
				batch.WithOutputDir(output),
				batch.WithProbeStateHook(a.metrics.JobStateHook("probe")),
			)
			m, err := validator.Validate(ctx, input)
			if err != nil {
				return err
			}

			encoder := batch.NewEncoder(a.runner, opts.EncoderPath, opts.EncoderArgs, logging.GetLogger("batch"),
				batch.WithEncoderWorkers(opts.Workers),
				batch.WithEncoderEvents(a.bus),
				batch.WithEncoderStateHook(a.metrics.JobStateHook("encode")),
			)
			slots, err := encoder.Encode(ctx, m, output)
			if err != nil {
				return err
			}

			if playAfter {
				if err := player.Play(ctx, slots); err != nil {
					return err
				}
			}
			return report.Write(out, a.format, report.FromEncode(m, output, slots, playAfter))
		},
	}

	f := cmd.Flags()
	f.StringVarP(&input, "input", "i", "", "Folder of samples, or of slot files with --play-only")
	f.StringVarP(&output, "output", "o", "", "Folder for the slot files (default <input>_upload)")
	f.BoolVarP(&playAfter, "play-after", "p", false, "Play the slot files after encoding")
	f.BoolVarP(&playOnly, "play-only", "P", false, "Skip validation and encoding, play the slot files in --input")
	f.BoolVarP(&yes, "yes", "y", false, "Start playback without asking for confirmation")
	_ = cmd.MarkFlagRequired("input")
	cmd.MarkFlagsMutuallyExclusive("play-only", "play-after")
	cmd.MarkFlagsMutuallyExclusive("play-only", "output")
	return cmd
}
