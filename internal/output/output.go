// Package output renders CLI results.
package output

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#4dca7d")).Bold(true)
	failureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#f46251")).Bold(true)
)

// Printer writes styled result lines, falling back to plain text when the
// destination is not a terminal.
type Printer struct {
	writer io.Writer
	styled bool
}

// NewPrinter creates a Printer on stdout.
func NewPrinter() *Printer {
	return &Printer{
		writer: os.Stdout,
		styled: isatty.IsTerminal(os.Stdout.Fd()),
	}
}

// Info writes a plain message.
func (p *Printer) Info(format string, args ...interface{}) {
	fmt.Fprintf(p.writer, format+"\n", args...)
}

// Success writes a success message.
func (p *Printer) Success(format string, args ...interface{}) {
	p.render(successStyle, fmt.Sprintf(format, args...))
}

// Failure writes a failure message.
func (p *Printer) Failure(format string, args ...interface{}) {
	p.render(failureStyle, fmt.Sprintf(format, args...))
}

func (p *Printer) render(style lipgloss.Style, msg string) {
	if p.styled {
		msg = style.Render(msg)
	}
	fmt.Fprintln(p.writer, msg)
}
