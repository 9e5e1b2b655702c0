// Package report renders the final run summary of the convert and upload
// commands as styled text, JSON or YAML.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/goccy/go-yaml"
)

// Format is an output format.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a --format value. Empty selects text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (text, json, yaml)", s)
	}
}

// Styles used by the text renderer.
type Styles struct {
	Title lipgloss.Style
	Label lipgloss.Style
	Dim   lipgloss.Style
	Error lipgloss.Style
}

// DefaultStyles follows the terminal's color support; without a TTY the
// text is plain.
var DefaultStyles = Styles{
	Title: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ff9f")),
	Label: lipgloss.NewStyle().Bold(true),
	Dim:   lipgloss.NewStyle().Foreground(lipgloss.Color("#6e7681")),
	Error: lipgloss.NewStyle().Foreground(lipgloss.Color("#ff5f5f")),
}

// texter is implemented by reports that have a text rendering.
type texter interface {
	Text(s Styles) string
}

// Write renders v to w in format f.
func Write(w io.Writer, f Format, v any) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		data, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to format report: %w", err)
		}
		_, err = w.Write(data)
		return err
	case FormatText, "":
		t, ok := v.(texter)
		if !ok {
			return fmt.Errorf("no text rendering for %T", v)
		}
		_, err := io.WriteString(w, t.Text(DefaultStyles))
		return err
	default:
		return fmt.Errorf("unsupported output format: %s", f)
	}
}

// columns left-aligns rows of cells, measuring styled widths.
func columns(rows [][]string) []string {
	var widths []int
	for _, row := range rows {
		for i, cell := range row {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}
	lines := make([]string, len(rows))
	for r, row := range rows {
		var b strings.Builder
		b.WriteString("  ")
		for i, cell := range row {
			b.WriteString(cell)
			if i < len(row)-1 {
				b.WriteString(strings.Repeat(" ", widths[i]-lipgloss.Width(cell)+2))
			}
		}
		lines[r] = b.String()
	}
	return lines
}
