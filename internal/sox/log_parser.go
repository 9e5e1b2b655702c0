package sox

import (
	"strings"

	"github.com/smazurov/volcaprep/internal/sample"
)

// ParseLogLevel maps sox's "sox WARN effect: message" prefixes to log
// levels. The "sox" prefix is dropped, the effect name kept.
func ParseLogLevel(line string) (level, msg string) {
	rest, ok := strings.CutPrefix(line, "sox ")
	if !ok {
		return "debug", line
	}
	tag, msg, ok := strings.Cut(rest, " ")
	if !ok {
		return "debug", line
	}
	switch tag {
	case "FAIL":
		return "error", msg
	case "WARN":
		return "warning", msg
	case "INFO":
		return "info", msg
	case "DBUG", "DBG":
		return "debug", msg
	}
	return "debug", line
}

// FailedStage attributes a failed invocation to a transform stage using
// the first "sox FAIL" line in output. Failures that name no effect, such
// as an unreadable input, fall back to the invocation's first stage.
func FailedStage(output string, fallback sample.Stage) sample.Stage {
	for line := range strings.Lines(output) {
		level, msg := ParseLogLevel(strings.TrimRight(line, "\r\n"))
		if level != "error" {
			continue
		}
		name, detail, _ := strings.Cut(msg, ":")
		if name == "formats" && strings.Contains(detail, "output file") {
			return sample.StageOutput
		}
		return stageForEffect(strings.TrimSpace(name), fallback)
	}
	return fallback
}

func stageForEffect(effect string, fallback sample.Stage) sample.Stage {
	switch effect {
	case "silence", "reverse":
		return sample.StageTrim
	case "speed":
		return sample.StageSpeed
	case "rate", "dither", "gain":
		return sample.StageQuantize
	case "pad":
		return sample.StagePad
	case "channels", "remix":
		return sample.StageDownmix
	}
	return fallback
}
