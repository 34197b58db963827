package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/tgienger/strack/internal/ui/styles"
)

// palette holds the CLI styles for one output stream. Colors are dropped
// when the stream is not a terminal or --no-color is set.
type palette struct {
	id      lipgloss.Style
	title   lipgloss.Style
	label   lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	failure lipgloss.Style
}

func newRenderer(w io.Writer) *lipgloss.Renderer {
	r := lipgloss.NewRenderer(w)
	if noColor {
		r.SetColorProfile(termenv.Ascii)
	}
	return r
}

func newPalette(w io.Writer) palette {
	r := newRenderer(w)
	t := styles.Current
	return palette{
		id:      r.NewStyle().Foreground(t.Accent),
		title:   r.NewStyle().Bold(true),
		label:   r.NewStyle().Bold(true),
		success: r.NewStyle().Foreground(t.Success),
		warning: r.NewStyle().Foreground(t.Warning),
		failure: r.NewStyle().Foreground(t.Error),
	}
}

// Messages go to stderr so stdout stays pipeable.

func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, newPalette(os.Stderr).success.Render("✓ "+msg))
}

func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, newPalette(os.Stderr).failure.Render("✗ "+msg))
}

func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, newPalette(os.Stderr).warning.Render("⚠ "+msg))
}

func printStatus(label string, format string, args ...any) {
	val := fmt.Sprintf(format, args...)
	l := newPalette(os.Stderr).label.Render(label + ":")
	fmt.Fprintf(os.Stderr, "  %s %s\n", l, val)
}
