// Package display renders the CLI's banners and sections. Colour is only
// used when the destination is a terminal.
package display

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

const ruleWidth = 60

var (
	accent  = lipgloss.Color("#f97316")
	success = lipgloss.Color("#22c55e")
	warning = lipgloss.Color("#eab308")
	failure = lipgloss.Color("#ef4444")
	dim     = lipgloss.Color("#888888")
)

// Printer writes human-oriented output to one writer.
type Printer struct {
	w      io.Writer
	styled bool

	title  lipgloss.Style
	rule   lipgloss.Style
	ok     lipgloss.Style
	warn   lipgloss.Style
	err    lipgloss.Style
	subtle lipgloss.Style
}

// New returns a Printer for w, styled when w is a terminal.
func New(w io.Writer) *Printer {
	return newPrinter(w, isTerminal(w))
}

// Plain returns a Printer that never emits escape sequences.
func Plain(w io.Writer) *Printer {
	return newPrinter(w, false)
}

func newPrinter(w io.Writer, styled bool) *Printer {
	r := lipgloss.NewRenderer(w)
	return &Printer{
		w:      w,
		styled: styled,
		title:  r.NewStyle().Bold(true).Foreground(accent),
		rule:   r.NewStyle().Foreground(dim),
		ok:     r.NewStyle().Bold(true).Foreground(success),
		warn:   r.NewStyle().Foreground(warning),
		err:    r.NewStyle().Bold(true).Foreground(failure),
		subtle: r.NewStyle().Foreground(dim),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// Banner prints title framed by two rules.
func (p *Printer) Banner(title string) {
	p.Rule()
	fmt.Fprintln(p.w, p.render(p.title, title))
	p.Rule()
}

// Rule prints a horizontal separator.
func (p *Printer) Rule() {
	fmt.Fprintln(p.w, p.render(p.rule, strings.Repeat("=", ruleWidth)))
}

// Println prints a plain line.
func (p *Printer) Println(a ...any) {
	fmt.Fprintln(p.w, a...)
}

// Printf prints a formatted plain string.
func (p *Printer) Printf(format string, a ...any) {
	fmt.Fprintf(p.w, format, a...)
}

// Note prints a dimmed informational line.
func (p *Printer) Note(msg string) {
	fmt.Fprintln(p.w, p.render(p.subtle, msg))
}

// Success prints a highlighted success line.
func (p *Printer) Success(msg string) {
	fmt.Fprintln(p.w, p.render(p.ok, msg))
}

// Warn prints a warning line.
func (p *Printer) Warn(msg string) {
	fmt.Fprintln(p.w, p.render(p.warn, "Warning: "+msg))
}

// Error prints an error line.
func (p *Printer) Error(msg string) {
	fmt.Fprintln(p.w, p.render(p.err, msg))
}

func (p *Printer) render(style lipgloss.Style, s string) string {
	if !p.styled {
		return s
	}
	return style.Render(s)
}
