package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/smazurov/volcaprep/internal/config"
	"github.com/smazurov/volcaprep/internal/events"
	"github.com/smazurov/volcaprep/internal/logging"
	"github.com/smazurov/volcaprep/internal/metrics"
	"github.com/smazurov/volcaprep/internal/probe"
	"github.com/smazurov/volcaprep/internal/process"
	"github.com/smazurov/volcaprep/internal/report"
	"github.com/smazurov/volcaprep/internal/sox"
)

// app holds the collaborators shared by the commands of one run.
type app struct {
	opts    *Options
	format  report.Format
	logger  *slog.Logger
	bus     *events.Bus
	metrics *metrics.Recorder
	runner  process.Runner
	detach  func()
}

// newApp loads configuration, initializes logging and wires the event
// bus, metrics and the process executor.
func newApp(cmd *cobra.Command, opts *Options) (*app, error) {
	if err := config.LoadConfig(opts, cmd); err != nil {
		return nil, err
	}
	modules, err := config.LoadStringMap(opts.Config, "logging.modules")
	if err != nil {
		return nil, err
	}
	format, err := report.ParseFormat(opts.ReportFormat)
	if err != nil {
		return nil, err
	}

	logging.Initialize(logging.Config{
		Level:   opts.LoggingLevel,
		Format:  opts.LoggingFormat,
		Modules: modules,
		File:    opts.LoggingFile,
	})

	bus := events.New()
	rec := metrics.New()

	executor := process.NewExecutor(
		logging.GetLogger("process"),
		process.WithTimeout(opts.ToolTimeout),
		process.WithLogParser(sox.ToolName, sox.ParseLogLevel),
		process.WithToolLoggers(func(tool string) logging.Logger { return logging.GetLogger(tool) }),
	)

	return &app{
		opts:    opts,
		format:  format,
		logger:  logging.GetLogger(cmd.Name()),
		bus:     bus,
		metrics: rec,
		runner:  executor,
		detach:  rec.Attach(bus),
	}, nil
}

func (a *app) probe() probe.DurationProbe {
	return probe.New(a.runner, a.opts.FFProbePath, logging.GetLogger(probe.ToolName))
}

// close waits for event delivery, writes the metrics textfile and flushes logs.
func (a *app) close() {
	a.bus.Drain()
	a.detach()
	if a.opts.MetricsFile != "" {
		if err := a.metrics.WriteTextfile(a.opts.MetricsFile); err != nil {
			a.logger.Warn("Failed to write metrics", "file", a.opts.MetricsFile, "error", err)
		}
	}
	if err := logging.Close(); err != nil {
		slog.Warn("Failed to close log file", "error", err)
	}
}
