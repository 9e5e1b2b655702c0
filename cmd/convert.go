package cmd

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/smazurov/volcaprep/internal/logging"
	"github.com/smazurov/volcaprep/internal/report"
	"github.com/smazurov/volcaprep/internal/sample"
	"github.com/smazurov/volcaprep/internal/sox"
	"github.com/smazurov/volcaprep/internal/transform"
)

// DefaultConvertDir is used when neither --outdir nor convert.outdir is set.
const DefaultConvertDir = "converted"

// CreateConvertCmd creates the convert command.
func CreateConvertCmd(opts *Options) *cobra.Command {
	var (
		input         string
		lowQuality    bool
		addPadding    bool
		speedup       bool
		speedupFactor int
		noTrim        bool
		watch         bool
		debounce      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert recordings into volca sample compatible WAV files",
		Long: `Converts a file, or every file under a directory, into mono PCM WAV at
16-bit/31250 Hz (or 8-bit/22050 Hz with --lq). Leading and trailing silence
is trimmed first, then the optional speed-up and tail padding are applied.
A file that fails is reported and skipped; the others are still converted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.close()

			spec := sample.ConversionSpec{
				TrimSilence: !noTrim,
				LowQuality:  lowQuality,
				AddPadding:  addPadding,
			}
			if speedup {
				spec.SpeedupFactor = float64(speedupFactor)
			}

			outDir := opts.ConvertOutDir
			if outDir == "" {
				outDir = DefaultConvertDir
			}

			pipeline := transform.New(
				sox.NewTranscoder(a.runner, opts.SoxPath, logging.GetLogger("transcoder")),
				a.probe(),
				logging.GetLogger("transform"),
				transform.WithWorkers(opts.Workers),
				transform.WithEventBus(a.bus),
				transform.WithJobStateHook(a.metrics.JobStateHook("convert")),
			)

			out := cmd.OutOrStdout()
			ctx := cmd.Context()

			if watch {
				a.logger.Info("Watching for new samples", "input", input, "outdir", outDir)
				return pipeline.Watch(ctx, input, outDir, spec, debounce, func(res *transform.Result) {
					if err := report.Write(out, a.format, report.FromTransform(input, outDir, spec, res)); err != nil {
						a.logger.Warn("Failed to write report", "error", err)
					}
				})
			}

			res, err := pipeline.Run(ctx, input, outDir, spec)
			if err != nil {
				return err
			}
			if err := report.Write(out, a.format, report.FromTransform(input, outDir, spec, res)); err != nil {
				return err
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return res.Err()
		},
	}

	f := cmd.Flags()
	f.StringVarP(&input, "input", "i", "", "File or directory to convert")
	f.StringVarP(&opts.ConvertOutDir, "outdir", "o", "", "Destination directory (default \""+DefaultConvertDir+"\")")
	f.BoolVar(&lowQuality, "lq", false, "Use 8-bit/22050 Hz instead of 16-bit/31250 Hz")
	f.BoolVar(&addPadding, "pad", false, "Append 1/9 of the duration as trailing silence")
	f.BoolVar(&speedup, "speedup", false, "Speed samples up, to be slowed down again on the device")
	f.IntVar(&speedupFactor, "speedup-factor", 3, "Speed-up factor used with --speedup")
	f.BoolVar(&noTrim, "no-trim", false, "Keep leading and trailing silence")
	f.BoolVar(&watch, "watch", false, "Keep watching the input directory and convert new files")
	f.DurationVar(&debounce, "debounce", 2*time.Second, "Quiet period before a watched change is converted")
	_ = cmd.MarkFlagRequired("input")

	cmd.PreRunE = func(*cobra.Command, []string) error {
		if speedup && speedupFactor <= 0 {
			return &sample.InvalidInputError{Path: input, Reason: "--speedup-factor must be positive"}
		}
		if _, err := os.Stat(input); err != nil {
			return &sample.InvalidInputError{Path: input, Reason: "does not exist", Cause: err}
		}
		return nil
	}
	return cmd
}
