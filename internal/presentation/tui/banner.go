package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the dgwatch banner to w.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	lines := []struct{ text, color string }{
		{"      _                    _       _     ", "#38bdf8"},
		{"   __| | __ ___      ____ _| |_ ___| |__  ", "#22d3ee"},
		{"  / _` |/ _` \\ \\ /\\ / / _` | __/ __| '_ \\ ", "#2dd4bf"},
		{" | (_| | (_| |\\ V  V / (_| | || (__| | | |", "#34d399"},
		{"  \\__,_|\\__, | \\_/\\_/ \\__,_|\\__\\___|_| |_|", "#4ade80"},
		{"        |___/                            ", "#a3e635"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
