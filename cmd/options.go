package cmd

import (
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/smazurov/volcaprep/internal/batch"
)

// Options for the CLI - flat structure with toml mapping.
// Precedence: flags > VOLCAPREP_* env > config file > flag defaults.
type Options struct {
	Config string `flag:"config"`

	// External tools
	SoxPath     string        `toml:"tools.sox" env:"TOOLS_SOX" flag:"sox"`
	FFProbePath string        `toml:"tools.ffprobe" env:"TOOLS_FFPROBE" flag:"ffprobe"`
	EncoderPath string        `toml:"tools.encoder" env:"TOOLS_ENCODER" flag:"encoder"`
	EncoderArgs []string      `toml:"tools.encoder_args" env:"TOOLS_ENCODER_ARGS" flag:"encoder-args"`
	PlayerPath  string        `toml:"tools.player" env:"TOOLS_PLAYER" flag:"player"`
	PlayerArgs  []string      `toml:"tools.player_args" env:"TOOLS_PLAYER_ARGS" flag:"player-args"`
	ToolTimeout time.Duration `toml:"tools.timeout" env:"TOOLS_TIMEOUT" flag:"timeout"`

	Workers int `toml:"workers" env:"WORKERS"`

	// Convert settings
	ConvertOutDir string `toml:"convert.outdir" env:"CONVERT_OUTDIR" flag:"outdir"`

	// Logging settings
	LoggingLevel  string `toml:"logging.level" env:"LOGGING_LEVEL" flag:"log-level"`
	LoggingFormat string `toml:"logging.format" env:"LOGGING_FORMAT" flag:"log-format"`
	LoggingFile   string `toml:"logging.file" env:"LOGGING_FILE" flag:"log-file"`

	MetricsFile  string `toml:"metrics.file" env:"METRICS_FILE" flag:"metrics-file"`
	ReportFormat string `toml:"report.format" env:"REPORT_FORMAT" flag:"format"`
}

// BindFlags registers the shared options as persistent flags on root.
func BindFlags(root *cobra.Command, opts *Options) {
	f := root.PersistentFlags()
	f.StringVarP(&opts.Config, "config", "c", "volcaprep.toml", "Path to configuration file")

	f.StringVar(&opts.SoxPath, "sox", "sox", "Audio transcoder executable")
	f.StringVar(&opts.FFProbePath, "ffprobe", "ffprobe", "Media inspection executable")
	f.StringVar(&opts.EncoderPath, "encoder", "", "Vendor slot encoder executable")
	f.StringSliceVar(&opts.EncoderArgs, "encoder-args", batch.DefaultEncoderArgs, "Encoder argument template ({slot}, {input}, {output})")
	f.StringVar(&opts.PlayerPath, "player", batch.DefaultPlayer, "Audio player executable")
	f.StringSliceVar(&opts.PlayerArgs, "player-args", batch.DefaultPlayerArgs, "Player argument template ({slot}, {input})")
	f.DurationVar(&opts.ToolTimeout, "timeout", 2*time.Minute, "Time limit for each external tool invocation (0 disables)")

	f.IntVar(&opts.Workers, "workers", runtime.NumCPU(), "Concurrent tool invocations")

	f.StringVar(&opts.LoggingLevel, "log-level", "info", "Global logging level (debug, info, warn, error)")
	f.StringVar(&opts.LoggingFormat, "log-format", "text", "Logging format (text, json)")
	f.StringVar(&opts.LoggingFile, "log-file", "", "Also write JSON logs to this rotated file")

	f.StringVar(&opts.MetricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile on exit")
	f.StringVar(&opts.ReportFormat, "format", "text", "Report format (text, json, yaml)")
}
