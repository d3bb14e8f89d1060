package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the procmeta banner with the version underneath.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	// Teal to blue, one step per line.
	lines := []struct {
		text, color string
	}{
		{"  _ __  _ __ ___   ___ _ __ ___   ___| |_ __ _ ", "#2dd4bf"},
		{" | '_ \\| '__/ _ \\ / __| '_ ` _ \\ / _ \\ __/ _` |", "#22d3ee"},
		{" | |_) | | | (_) | (__| | | | | |  __/ || (_| |", "#38bdf8"},
		{" | .__/|_|  \\___/ \\___|_| |_| |_|\\___|\\__\\__,_|", "#60a5fa"},
		{" |_|", "#818cf8"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w, out.String("  "+version).Faint())
	fmt.Fprintln(w)
}
