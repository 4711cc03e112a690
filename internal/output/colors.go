package output

import (
	"io"
	"os"

	"github.com/fatih/color"
)

// ColorScheme defines the colors used for progress and summary output.
type ColorScheme struct {
	Label     *color.Color
	Value     *color.Color
	Success   *color.Color
	Warn      *color.Color
	Error     *color.Color
	Highlight *color.Color
	Rule      *color.Color
}

// DefaultColorScheme returns the default color scheme.
func DefaultColorScheme() *ColorScheme {
	scheme := &ColorScheme{
		Label:     color.New(color.FgWhite),
		Value:     color.New(color.FgCyan, color.Bold),
		Success:   color.New(color.FgGreen, color.Bold),
		Warn:      color.New(color.FgYellow, color.Bold),
		Error:     color.New(color.FgRed, color.Bold),
		Highlight: color.New(color.FgMagenta, color.Bold),
		Rule:      color.New(color.FgCyan),
	}
	for _, c := range scheme.all() {
		c.EnableColor()
	}
	return scheme
}

// NoColorScheme returns a color scheme with all colors disabled.
func NoColorScheme() *ColorScheme {
	scheme := DefaultColorScheme()
	for _, c := range scheme.all() {
		c.DisableColor()
	}
	return scheme
}

// SchemeFor picks colors for w: colored only on a terminal, and never when
// NO_COLOR is set.
func SchemeFor(w io.Writer) *ColorScheme {
	if os.Getenv("NO_COLOR") != "" || !IsTerminal(w) {
		return NoColorScheme()
	}
	return DefaultColorScheme()
}

func (s *ColorScheme) all() []*color.Color {
	return []*color.Color{s.Label, s.Value, s.Success, s.Warn, s.Error, s.Highlight, s.Rule}
}
