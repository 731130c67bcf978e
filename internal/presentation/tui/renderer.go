package tui

import (
	"io"

	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders markdown using glamour.
// When out is not a terminal the markdown is returned unchanged, so pipes get plain text.
func NewRenderer(out io.Writer) func(string) (string, error) {
	if !IsTerminal(out) {
		return func(markdown string) (string, error) {
			return markdown, nil
		}
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
	)
	if err != nil {
		return func(markdown string) (string, error) {
			return markdown, nil
		}
	}
	return r.Render
}
