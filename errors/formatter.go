// Package errors renders ledger and conversion errors for people and
// programs. Error types stay in their own packages; this package only
// presents them.
//
// Two formatters are provided:
//   - TextFormatter: bean-check style text, with the offending directive or
//     the surrounding source lines
//   - JSONFormatter: structured JSON for tooling
package errors

import (
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"

	"github.com/robinvdvleuten/beancount-scc/ast"
	"github.com/robinvdvleuten/beancount-scc/formatter"
)

// Formatter formats errors for output in different formats.
type Formatter interface {
	Format(err error) string
	FormatAll(errs []error) string
}

type positioned interface {
	error
	GetPosition() ast.Position
}

type withDirective interface {
	positioned
	GetDirective() ast.Directive
}

// Style decorates a piece of rendered output.
type Style func(string) string

func plain(s string) string { return s }

// TextFormatter formats errors in bean-check style.
type TextFormatter struct {
	source  []byte
	message Style
	context Style
	caret   Style
}

// TextFormatterOption configures a TextFormatter.
type TextFormatterOption func(*TextFormatter)

// WithSource sets the source used to show the lines around an error that
// has a position but no directive.
func WithSource(source []byte) TextFormatterOption {
	return func(tf *TextFormatter) {
		tf.source = source
	}
}

// WithStyles decorates the error message, the context lines and the caret
// under the error column.
func WithStyles(message, context, caret Style) TextFormatterOption {
	return func(tf *TextFormatter) {
		tf.message = message
		tf.context = context
		tf.caret = caret
	}
}

// NewTextFormatter creates a text formatter.
func NewTextFormatter(opts ...TextFormatterOption) *TextFormatter {
	tf := &TextFormatter{message: plain, context: plain, caret: plain}
	for _, opt := range opts {
		opt(tf)
	}
	return tf
}

// Format formats a single error. Combined errors are formatted one by one.
func (tf *TextFormatter) Format(err error) string {
	if errs := multierr.Errors(err); len(errs) > 1 {
		return tf.FormatAll(errs)
	}

	var d withDirective
	if stdErrors.As(err, &d) && d.GetDirective() != nil {
		return tf.formatWithDirective(err.Error(), d.GetDirective())
	}

	var p positioned
	if stdErrors.As(err, &p) && tf.source != nil {
		return tf.formatWithSource(p.GetPosition(), err.Error())
	}

	return tf.message(err.Error())
}

// FormatAll formats multiple errors, separated by blank lines.
func (tf *TextFormatter) FormatAll(errs []error) string {
	parts := make([]string, 0, len(errs))
	for _, err := range errs {
		parts = append(parts, tf.Format(err))
	}
	return strings.Join(parts, "\n\n")
}

// formatWithSource shows the lines around pos with a caret under its column.
func (tf *TextFormatter) formatWithSource(pos ast.Position, message string) string {
	var buf strings.Builder
	buf.WriteString(tf.message(message))
	buf.WriteString("\n\n")

	lines := strings.Split(string(tf.source), "\n")
	start := max(pos.Line-3, 0)
	end := min(pos.Line+1, len(lines)-1)

	for i := start; i <= end; i++ {
		buf.WriteString("   ")
		buf.WriteString(tf.context(lines[i]))
		buf.WriteByte('\n')

		if i == pos.Line-1 && pos.Column > 0 {
			buf.WriteString("   ")
			buf.WriteString(strings.Repeat(" ", pos.Column-1))
			buf.WriteString(tf.caret("^"))
			buf.WriteByte('\n')
		}
	}
	return buf.String()
}

// formatWithDirective shows the rendered directive below the message.
func (tf *TextFormatter) formatWithDirective(message string, directive ast.Directive) string {
	var buf strings.Builder
	buf.WriteString(tf.message(message))
	buf.WriteString("\n\n")

	for _, line := range strings.Split(formatter.FormatDirective(directive), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		buf.WriteString("   ")
		buf.WriteString(tf.context(line))
		buf.WriteByte('\n')
	}
	return buf.String()
}

// JSONFormatter formats errors as JSON.
type JSONFormatter struct{}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// ErrorJSON is an error in JSON format.
type ErrorJSON struct {
	Type     string         `json:"type"`
	Message  string         `json:"message"`
	Position *PositionJSON  `json:"position,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
}

// PositionJSON is a file position in JSON format.
type PositionJSON struct {
	Filename string `json:"filename"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
}

// Format formats a single error as JSON.
func (jf *JSONFormatter) Format(err error) string {
	data, _ := json.Marshal(jf.toJSON(err))
	return string(data)
}

// FormatAll formats multiple errors as a JSON array.
func (jf *JSONFormatter) FormatAll(errs []error) string {
	data, _ := json.MarshalIndent(jf.FormatAllToSlice(errs), "", "  ")
	return string(data)
}

// FormatAllToSlice returns errors as a slice of ErrorJSON structs.
func (jf *JSONFormatter) FormatAllToSlice(errs []error) []ErrorJSON {
	result := make([]ErrorJSON, 0, len(errs))
	for _, err := range errs {
		for _, e := range multierr.Errors(err) {
			result = append(result, jf.toJSON(e))
		}
	}
	return result
}

func (jf *JSONFormatter) toJSON(err error) ErrorJSON {
	out := ErrorJSON{
		Type:    fmt.Sprintf("%T", err),
		Message: err.Error(),
		Details: make(map[string]any),
	}

	var p positioned
	if stdErrors.As(err, &p) {
		pos := p.GetPosition()
		if pos.Filename != "" || pos.Line > 0 {
			out.Position = &PositionJSON{Filename: pos.Filename, Line: pos.Line, Column: pos.Column}
		}
	}

	var d withDirective
	if stdErrors.As(err, &d) {
		if directive := d.GetDirective(); directive != nil && directive.GetDate() != nil {
			out.Details["date"] = directive.GetDate().String()
			out.Details["directive"] = string(directive.Kind())
		}
	}
	return out
}
