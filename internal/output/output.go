// Package output formats CLI messages consistently, with color when the
// destination is a terminal.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/eunjujo120/perso-ai-chatbot/internal/ui"
)

// Writer provides formatted output for the CLI.
type Writer struct {
	out    io.Writer
	styles ui.Styles
}

// New creates a Writer. Color is used only for terminals without NO_COLOR.
func New(out io.Writer) *Writer {
	return &Writer{
		out:    out,
		styles: ui.GetStyles(!ui.IsTTY(out) || ui.DetectNoColor()),
	}
}

// Styles returns the styles in use.
func (w *Writer) Styles() ui.Styles {
	return w.styles
}

// Status prints a message with an icon, or indented without one.
func (w *Writer) Status(icon, msg string) {
	if icon != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
	} else {
		_, _ = fmt.Fprintf(w.out, "   %s\n", msg)
	}
}

// Statusf is Status with formatting.
func (w *Writer) Statusf(icon, format string, args ...any) {
	w.Status(icon, fmt.Sprintf(format, args...))
}

func (w *Writer) Success(msg string) { w.Status(w.styles.Success.Render("✓"), msg) }

func (w *Writer) Successf(format string, args ...any) { w.Success(fmt.Sprintf(format, args...)) }

func (w *Writer) Warning(msg string) { w.Status(w.styles.Warning.Render("!"), msg) }

func (w *Writer) Warningf(format string, args ...any) { w.Warning(fmt.Sprintf(format, args...)) }

func (w *Writer) Error(msg string) { w.Status(w.styles.Error.Render("✗"), msg) }

func (w *Writer) Errorf(format string, args ...any) { w.Error(fmt.Sprintf(format, args...)) }

// Header prints a bold section title.
func (w *Writer) Header(title string) {
	_, _ = fmt.Fprintln(w.out, w.styles.Header.Render(title))
}

// KeyValue prints an aligned label and value.
func (w *Writer) KeyValue(label, value string) {
	_, _ = fmt.Fprintf(w.out, "  %s %s\n", w.styles.Label.Render(fmt.Sprintf("%-12s", label+":")), value)
}

// Check prints one doctor line. status is PASS, WARN or FAIL.
func (w *Writer) Check(status, name, msg string) {
	var style lipgloss.Style
	switch status {
	case "PASS":
		style = w.styles.Success
	case "WARN":
		style = w.styles.Warning
	default:
		style = w.styles.Error
	}
	_, _ = fmt.Fprintf(w.out, "[%s] %s: %s\n", style.Render(status), name, msg)
}

// Print writes s followed by a newline.
func (w *Writer) Print(s string) {
	_, _ = fmt.Fprintln(w.out, s)
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}

// Progress redraws a progress bar in place, ending the line when done.
func (w *Writer) Progress(current, total int, msg string) {
	if total <= 0 {
		return
	}
	pct := float64(current) / float64(total) * 100
	_, _ = fmt.Fprintf(w.out, "\r[%s] %3.0f%% %s", renderProgressBar(current, total, 30), pct, msg)
	if current >= total {
		_, _ = fmt.Fprintln(w.out)
	}
}

func renderProgressBar(current, total, width int) string {
	if total <= 0 {
		return strings.Repeat("░", width)
	}
	filled := min(max(current*width/total, 0), width)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
