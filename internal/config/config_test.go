package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
)

type testOptions struct {
	Config string

	SoxPath     string        `toml:"tools.sox" env:"TOOLS_SOX"`
	EncoderArgs []string      `toml:"tools.encoder_args" env:"TOOLS_ENCODER_ARGS"`
	Timeout     time.Duration `toml:"tools.timeout" env:"TOOLS_TIMEOUT"`
	Workers     int           `toml:"workers" env:"WORKERS"`
	Ratio       float64       `toml:"pad.ratio" env:"PAD_RATIO"`
	Verbose     bool          `toml:"logging.verbose" env:"LOGGING_VERBOSE"`
	LogLevel    string        `toml:"logging.level" env:"LOGGING_LEVEL" flag:"log-level"`
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "volcaprep.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoadConfigFromTOML(t *testing.T) {
	path := writeConfig(t, `
workers = 4

[tools]
sox = "/opt/sox/bin/sox"
encoder_args = ["-n", "{slot}", "{input}"]
timeout = "45s"

[pad]
ratio = 0.25

[logging]
verbose = true
level = "debug"
`)

	opts := &testOptions{Config: path}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	want := &testOptions{
		Config:      path,
		SoxPath:     "/opt/sox/bin/sox",
		EncoderArgs: []string{"-n", "{slot}", "{input}"},
		Timeout:     45 * time.Second,
		Workers:     4,
		Ratio:       0.25,
		Verbose:     true,
		LogLevel:    "debug",
	}
	if diff := cmp.Diff(want, opts); diff != "" {
		t.Errorf("LoadConfig mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfigMissingFileIsIgnored(t *testing.T) {
	opts := &testOptions{Config: filepath.Join(t.TempDir(), "absent.toml"), Workers: 2}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if opts.Workers != 2 {
		t.Errorf("Workers = %d, want default 2", opts.Workers)
	}
}

func TestLoadConfigInvalidTOML(t *testing.T) {
	path := writeConfig(t, "workers = [unterminated")
	if err := LoadConfig(&testOptions{Config: path}, nil); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadConfigBadDuration(t *testing.T) {
	path := writeConfig(t, "[tools]\ntimeout = \"soon\"\n")
	if err := LoadConfig(&testOptions{Config: path}, nil); err == nil {
		t.Fatal("expected duration error")
	}
}

func TestLoadConfigEnvOverridesToml(t *testing.T) {
	path := writeConfig(t, `
workers = 4

[tools]
sox = "toml-sox"
timeout = "1m"
`)
	t.Setenv("VOLCAPREP_TOOLS_SOX", "env-sox")
	t.Setenv("VOLCAPREP_TOOLS_TIMEOUT", "5s")
	t.Setenv("VOLCAPREP_TOOLS_ENCODER_ARGS", "a, b ,c")
	t.Setenv("VOLCAPREP_PAD_RATIO", "0.5")

	opts := &testOptions{Config: path}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if opts.SoxPath != "env-sox" {
		t.Errorf("SoxPath = %q, want env-sox", opts.SoxPath)
	}
	if opts.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", opts.Timeout)
	}
	if opts.Workers != 4 {
		t.Errorf("Workers = %d, want 4 (from TOML)", opts.Workers)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, opts.EncoderArgs); diff != "" {
		t.Errorf("EncoderArgs mismatch (-want +got):\n%s", diff)
	}
	if opts.Ratio != 0.5 {
		t.Errorf("Ratio = %v, want 0.5", opts.Ratio)
	}
}

func TestLoadConfigInvalidEnv(t *testing.T) {
	t.Setenv("VOLCAPREP_WORKERS", "many")
	if err := LoadConfig(&testOptions{}, nil); err == nil {
		t.Fatal("expected error for non-numeric workers")
	}
}

func TestLoadConfigCLIFlagsWin(t *testing.T) {
	path := writeConfig(t, "workers = 4\n[logging]\nlevel = \"warn\"\n")
	t.Setenv("VOLCAPREP_WORKERS", "6")

	opts := &testOptions{Config: path}
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().IntVar(&opts.Workers, "workers", 1, "")
	cmd.Flags().StringVar(&opts.LogLevel, "log-level", "info", "")
	if err := cmd.Flags().Parse([]string{"--workers", "8", "--log-level", "error"}); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if err := LoadConfig(opts, cmd); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if opts.Workers != 8 {
		t.Errorf("Workers = %d, want 8 from CLI", opts.Workers)
	}
	if opts.LogLevel != "error" {
		t.Errorf("LogLevel = %q, want error from CLI", opts.LogLevel)
	}
}

func TestLoadConfigRejectsNonPointer(t *testing.T) {
	if err := LoadConfig(testOptions{}, nil); err == nil {
		t.Fatal("expected error for non-pointer")
	}
}

func TestGetNestedValue(t *testing.T) {
	data := map[string]any{
		"tools": map[string]any{
			"sox": "sox",
			"encoder": map[string]any{
				"path": "syro",
			},
		},
		"workers": int64(3),
	}

	tests := []struct {
		path string
		want any
	}{
		{"workers", int64(3)},
		{"tools.sox", "sox"},
		{"tools.encoder.path", "syro"},
		{"missing", nil},
		{"tools.missing", nil},
		{"workers.deeper", nil},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := getNestedValue(data, tt.path); got != tt.want {
				t.Errorf("getNestedValue(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestFieldNameToFlag(t *testing.T) {
	tests := map[string]string{
		"Workers":      "workers",
		"LoggingLevel": "logging-level",
		"MetricsFile":  "metrics-file",
	}
	for in, want := range tests {
		if got := fieldNameToFlag(in); got != want {
			t.Errorf("fieldNameToFlag(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLoadStringMap(t *testing.T) {
	path := writeConfig(t, "[logging]\nlevel = \"info\"\n\n[logging.modules]\nsox = \"debug\"\nencoder = \"warn\"\n")

	got, err := LoadStringMap(path, "logging.modules")
	if err != nil {
		t.Fatalf("LoadStringMap failed: %v", err)
	}
	if diff := cmp.Diff(map[string]string{"sox": "debug", "encoder": "warn"}, got); diff != "" {
		t.Errorf("modules mismatch (-want +got):\n%s", diff)
	}

	empty, err := LoadStringMap(filepath.Join(t.TempDir(), "absent.toml"), "logging.modules")
	if err != nil || len(empty) != 0 {
		t.Errorf("missing file = %v, %v; want empty map", empty, err)
	}

	bad := writeConfig(t, "[logging.modules]\nsox = 3\n")
	if _, err := LoadStringMap(bad, "logging.modules"); err == nil {
		t.Error("expected an error for a non-string level")
	}
}
