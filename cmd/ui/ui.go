// Package ui holds the terminal styles shared by the signal-sdk commands.
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED"))

	sectionStyle = lipgloss.NewStyle().
			Bold(true)

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#10B981")).
		Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B"))

	failStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6")).
			Width(16)

	boxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B82F6")).
			Padding(0, 1)
)

// Printer writes styled lines to Out with a fixed indent.
type Printer struct {
	Out    io.Writer
	Indent string
}

func New(out io.Writer) *Printer {
	return &Printer{Out: out}
}

// Nested returns a printer indented three more spaces.
func (p *Printer) Nested() *Printer {
	return &Printer{Out: p.Out, Indent: p.Indent + "   "}
}

func (p *Printer) line(s string) {
	_, _ = fmt.Fprintln(p.Out, p.Indent+s)
}

func (p *Printer) Blank() {
	_, _ = fmt.Fprintln(p.Out)
}

func (p *Printer) Title(s string) {
	p.line(titleStyle.Render(s))
}

func (p *Printer) Section(s string) {
	p.line(sectionStyle.Render(s))
}

func (p *Printer) OK(format string, args ...any) {
	p.line(okStyle.Render("✅ " + fmt.Sprintf(format, args...)))
}

func (p *Printer) Warn(format string, args ...any) {
	p.line(warnStyle.Render("⚠️  " + fmt.Sprintf(format, args...)))
}

func (p *Printer) Fail(format string, args ...any) {
	p.line(failStyle.Render("❌ " + fmt.Sprintf(format, args...)))
}

func (p *Printer) Dim(format string, args ...any) {
	p.line(dimStyle.Render(fmt.Sprintf(format, args...)))
}

func (p *Printer) Bullet(s string) {
	p.line("• " + s)
}

func (p *Printer) Bullets(items ...string) {
	for _, s := range items {
		p.Bullet(s)
	}
}

// Table renders label/value rows inside a rounded box.
func (p *Printer) Table(rows [][2]string) {
	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, labelStyle.Render(r[0])+r[1])
	}
	p.line(boxStyle.Render(strings.Join(lines, "\n")))
}

// Rule prints a horizontal divider.
func (p *Printer) Rule() {
	p.line(strings.Repeat("=", 40))
}
