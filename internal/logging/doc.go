// Package logging provides structured logging with per-module log level configuration.
//
// # Overview
//
// The logging system uses Go's slog package with automatic output routing:
//   - Logs to stderr, keeping stdout free for the run report
//   - Logs to the systemd journal when available (Linux systems with journald)
//   - Logs to a size-rotated JSON file when Config.File is set
//
// # Usage
//
// Initialize the logging system once at startup:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",      // Global log level: debug, info, warn, error
//		Format: "text",      // Console format: text or json
//		File:   "/var/log/volcaprep.log",
//		Modules: map[string]string{
//			"sox":   "debug",  // Per-module overrides
//			"probe": "warn",
//		},
//	})
//	defer logging.Close()
//
// Get a logger for your module:
//
//	logger := logging.GetLogger("transform")
//	logger.Info("Converted", "file", path)
//
// External tool output is logged under the tool's own module
// (sox, ffprobe, encoder, player), so its verbosity can be tuned separately.
//
// # Viewing Logs
//
//	journalctl -t volcaprep                  # All volcaprep logs
//	journalctl -t volcaprep MODULE=sox       # Transcoder output only
//	journalctl -t volcaprep -p err           # Errors only
//
// # Configuration
//
//	[logging]
//	level = "info"
//	format = "text"
//	file = "volcaprep.log"
//
//	[logging.modules]
//	sox = "debug"
package logging
