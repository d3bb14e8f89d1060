package tui

import (
	"os"

	"github.com/aretw0/procmeta/pkg/domain"
	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// NewRenderer returns a function that renders markdown using glamour.
// The style follows the console theme; without a terminal it falls back to
// the plain notty style.
func NewRenderer(theme domain.Theme, tty bool) (func(string) (string, error), error) {
	style := "notty"
	if tty {
		style = "light"
		if theme == domain.ThemeDark {
			style = "dark"
		}
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return nil, err
	}

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}, nil
}
