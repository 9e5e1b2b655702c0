package sox

import (
	"strconv"
	"time"
)

// globalArgs keep sox quiet except for warnings and failures.
var globalArgs = []string{"--no-show-progress", "-V2"}

// TrimArgs builds the isolated silence-trim pass. Silence is removed from
// the head, the signal is reversed to remove it from the tail, then
// reversed back.
func TrimArgs(input, output string) []string {
	args := append([]string{}, globalArgs...)
	return append(args,
		input,
		"-t", "wav", output,
		"silence", "1", TrimMinDuration, TrimThreshold,
		"reverse",
		"silence", "1", TrimMinDuration, TrimThreshold,
		"reverse",
	)
}

// BuildArgs builds the main conversion. Effects run left to right:
// speed, rate, pad, then the downmix so the mix sees everything upstream.
func BuildArgs(p *Params) []string {
	args := append([]string{}, globalArgs...)
	args = append(args,
		p.Input,
		"-t", "wav",
		"-b", strconv.Itoa(p.Preset.BitDepth),
		"-r", strconv.Itoa(p.Preset.SampleRate),
		p.Output,
	)

	if p.Speed > 0 && p.Speed != 1 {
		args = append(args, "speed", formatFloat(p.Speed))
	}

	args = append(args, "rate", strconv.Itoa(p.Preset.SampleRate))

	if p.Pad > 0 {
		args = append(args, "pad", "0", formatSeconds(p.Pad))
	}

	return append(args, "channels", "1")
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// formatSeconds renders d in seconds with microsecond precision, which is
// below one sample period at either preset rate.
func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Round(time.Microsecond).Seconds(), 'f', -1, 64)
}
