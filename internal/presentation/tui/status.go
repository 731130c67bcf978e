package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// Status prints short colored result lines.
type Status struct {
	out     io.Writer
	profile termenv.Profile
}

// NewStatus writes to out, coloring only when out is a terminal.
func NewStatus(out io.Writer) *Status {
	profile := termenv.Ascii
	if IsTerminal(out) {
		profile = termenv.ColorProfile()
	}
	return &Status{out: out, profile: profile}
}

func (s *Status) line(mark, color, format string, args ...any) {
	prefix := s.profile.String(mark).Foreground(s.profile.Color(color)).Bold()
	fmt.Fprintf(s.out, "%s %s\n", prefix, fmt.Sprintf(format, args...))
}

// Success reports a completed operation.
func (s *Status) Success(format string, args ...any) {
	s.line("✔", "#22c55e", format, args...)
}

// Failure reports a rejected operation.
func (s *Status) Failure(format string, args ...any) {
	s.line("✘", "#ef4444", format, args...)
}

// Info reports a neutral fact.
func (s *Status) Info(format string, args ...any) {
	s.line("•", "#38bdf8", format, args...)
}
