// Package telemetry times the phases of a run (loading, conversion, round
// trip, self-test) as a tree carried through a context.Context.
//
//	collector := telemetry.NewTimingCollector()
//	ctx := telemetry.WithCollector(ctx, collector)
//
//	timer := telemetry.FromContext(ctx).Start("convert.Convert")
//	defer timer.End()
//
//	collector.Report(os.Stderr, output.NewStyles(os.Stderr))
//
// Without a collector in the context every call is a no-op.
package telemetry

import (
	"context"
	"io"

	"github.com/robinvdvleuten/beancount-scc/output"
)

type contextKey struct{}

// Collector records timers and reports them.
type Collector interface {
	// Start opens a timer nested under the innermost running one.
	Start(name string) Timer
	// Report writes the timers to w. Nil styles write plain text.
	Report(w io.Writer, styles *output.Styles)
}

// Timer measures one step.
type Timer interface {
	End()
	// Child opens a timer nested under this one.
	Child(name string) Timer
}

// WithCollector returns ctx carrying collector.
func WithCollector(ctx context.Context, collector Collector) context.Context {
	return context.WithValue(ctx, contextKey{}, collector)
}

// FromContext returns the collector of ctx, or a no-op collector.
func FromContext(ctx context.Context) Collector {
	if collector, ok := ctx.Value(contextKey{}).(Collector); ok {
		return collector
	}
	return noop{}
}
