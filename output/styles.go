// Package output styles the reports bean-scc writes to a terminal: query
// tables, telemetry trees and the conversion summary. Writers that are not
// terminals get plain text.
package output

import (
	"fmt"
	"io"
	"time"

	"github.com/muesli/termenv"
)

// SlowThreshold is the duration from which a timed step counts as slow.
const SlowThreshold = 100 * time.Millisecond

// Styles renders text for one writer.
type Styles struct {
	out *termenv.Output
}

// NewStyles detects the color profile of w.
func NewStyles(w io.Writer) *Styles {
	return &Styles{out: termenv.NewOutput(w)}
}

// Plain returns styles that never emit escape sequences.
func Plain() *Styles {
	return &Styles{out: termenv.NewOutput(io.Discard, termenv.WithProfile(termenv.Ascii))}
}

// Colored reports whether the styles emit escape sequences.
func (s *Styles) Colored() bool {
	return s.out.Profile != termenv.Ascii
}

func (s *Styles) color(text, color string) termenv.Style {
	return s.out.String(text).Foreground(s.out.Color(color))
}

// Heading renders totals and report titles.
func (s *Styles) Heading(text string) string {
	return s.out.String(text).Bold().String()
}

// Account renders an account name.
func (s *Styles) Account(text string) string {
	return s.color(text, "3").String()
}

// Currency renders a commodity, for instance one kept in its own currency.
func (s *Styles) Currency(text string) string {
	return s.color(text, "5").Bold().String()
}

// Balance renders an inventory or amount. Negative balances are red.
func (s *Styles) Balance(text string, negative bool) string {
	if negative {
		return s.color(text, "1").String()
	}
	return s.color(text, "2").String()
}

// Muted renders separators and tree guides.
func (s *Styles) Muted(text string) string {
	return s.out.String(text).Faint().String()
}

// Duration renders an elapsed time, highlighting steps slower than
// SlowThreshold.
func (s *Styles) Duration(d time.Duration) string {
	text := FormatDuration(d)
	if d >= SlowThreshold {
		return s.color(text, "3").Bold().String()
	}
	return s.Muted(text)
}

// FormatDuration prints milliseconds below one second and seconds above.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%.0fms", float64(d)/float64(time.Millisecond))
	}
	return fmt.Sprintf("%.2fs", float64(d)/float64(time.Second))
}
