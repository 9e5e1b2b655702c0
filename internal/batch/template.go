package batch

import (
	"strconv"
	"strings"
)

// Placeholders accepted in encoder and player argument templates.
const (
	PlaceholderSlot   = "{slot}"
	PlaceholderInput  = "{input}"
	PlaceholderOutput = "{output}"
)

// expandArgs substitutes placeholders in every template argument.
func expandArgs(template []string, slot int, input, output string) []string {
	r := strings.NewReplacer(
		PlaceholderSlot, strconv.Itoa(slot),
		PlaceholderInput, input,
		PlaceholderOutput, output,
	)
	args := make([]string, len(template))
	for i, a := range template {
		args[i] = r.Replace(a)
	}
	return args
}
