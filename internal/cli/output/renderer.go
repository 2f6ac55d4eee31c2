// Package output renders CLI status and tables. Styling is applied only
// when the output is a terminal.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Status values for StatusLine.
const (
	StatusSuccess = "success"
	StatusSkipped = "skipped"
	StatusError   = "error"
)

// Styles holds the lipgloss styles used by the renderer.
type Styles struct {
	Header  lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style
	Muted   lipgloss.Style
}

// DefaultStyles returns the terminal color scheme.
func DefaultStyles() *Styles {
	return &Styles{
		Header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		Error:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		Info:    lipgloss.NewStyle().Foreground(lipgloss.Color("14")),
		Muted:   lipgloss.NewStyle().Faint(true),
	}
}

// PlainStyles returns styles that render text unchanged.
func PlainStyles() *Styles {
	plain := lipgloss.NewStyle()
	return &Styles{Header: plain, Success: plain, Error: plain, Warning: plain, Info: plain, Muted: plain}
}

// Renderer writes results to out and status lines to errOut.
type Renderer struct {
	out    io.Writer
	errOut io.Writer
	tty    bool
	styles *Styles
}

// NewRenderer creates a renderer. Styling is enabled when out is a
// terminal.
func NewRenderer(out, errOut io.Writer) *Renderer {
	tty := IsTerminal(out)
	styles := PlainStyles()
	if tty {
		styles = DefaultStyles()
	}
	return &Renderer{out: out, errOut: errOut, tty: tty, styles: styles}
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// IsTTY reports whether results go to a terminal.
func (r *Renderer) IsTTY() bool { return r.tty }

// Writer returns the result writer.
func (r *Renderer) Writer() io.Writer { return r.out }

// ErrWriter returns the status writer.
func (r *Renderer) ErrWriter() io.Writer { return r.errOut }

// Styles returns the active styles.
func (r *Renderer) Styles() *Styles { return r.styles }

// Println writes a line of results.
func (r *Renderer) Println(a ...any) {
	_, _ = fmt.Fprintln(r.out, a...)
}

// Printf writes formatted results.
func (r *Renderer) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(r.out, format, a...)
}

// Header writes a section header. Level 1 is underlined on plain output.
func (r *Renderer) Header(level int, text string) {
	if !r.tty && level == 1 {
		r.Println(text)
		r.Println(strings.Repeat("=", len(text)))
		return
	}
	r.Println(r.styles.Header.Render(text))
}

// StatusLine writes "<mark> name (detail)" to the status writer.
func (r *Renderer) StatusLine(name, status, detail string) {
	var mark string
	switch status {
	case StatusSuccess:
		mark = r.styles.Success.Render("✓")
	case StatusSkipped:
		mark = r.styles.Muted.Render("-")
	case StatusError:
		mark = r.styles.Error.Render("✗")
	default:
		mark = " "
	}
	line := mark + " " + name
	if detail != "" {
		line += " " + r.styles.Muted.Render("("+detail+")")
	}
	_, _ = fmt.Fprintln(r.errOut, line)
}

// Success writes a success message to the status writer.
func (r *Renderer) Success(msg string) {
	_, _ = fmt.Fprintln(r.errOut, r.styles.Success.Render(msg))
}

// Warning writes a warning to the status writer.
func (r *Renderer) Warning(msg string) {
	_, _ = fmt.Fprintln(r.errOut, r.styles.Warning.Render("Warning: "+msg))
}

// Error writes an error to the status writer.
func (r *Renderer) Error(msg string) {
	_, _ = fmt.Fprintln(r.errOut, r.styles.Error.Render("Error: "+msg))
}

// Muted returns s in the muted style.
func (r *Renderer) Muted(s string) string {
	return r.styles.Muted.Render(s)
}
