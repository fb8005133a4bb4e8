package tui

import (
	"os"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// Renderer turns markdown into terminal output.
type Renderer func(markdown string) (string, error)

// NewRenderer returns a glamour renderer when stdout is a terminal and a
// pass-through renderer otherwise, so piped output stays plain markdown.
func NewRenderer() Renderer {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return Plain
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return Plain
	}
	return r.Render
}

// Plain returns markdown unchanged.
func Plain(markdown string) (string, error) {
	return markdown, nil
}
