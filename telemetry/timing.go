package telemetry

import (
	"io"
	"sync"
	"time"

	"github.com/robinvdvleuten/beancount-scc/output"
)

// TimingCollector records timers as a tree. The first timer started is the
// root; later ones nest under the innermost timer still running.
type TimingCollector struct {
	mu      sync.Mutex
	root    *step
	current *step
	now     func() time.Time
}

type step struct {
	name       string
	start, end time.Time
	parent     *step
	children   []*step
}

func (s *step) duration() time.Duration {
	if s.end.IsZero() {
		return 0
	}
	return s.end.Sub(s.start)
}

// NewTimingCollector returns an empty collector.
func NewTimingCollector() *TimingCollector {
	return &TimingCollector{now: time.Now}
}

// Start opens a timer under the innermost running timer.
func (c *TimingCollector) Start(name string) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := &step{name: name, start: c.now()}
	if c.root == nil {
		c.root = s
	} else {
		s.parent = c.current
		c.current.children = append(c.current.children, s)
	}
	c.current = s
	return &timer{collector: c, step: s}
}

// Report writes the tree of timers to w. Steps that are still running are
// shown with a zero duration.
func (c *TimingCollector) Report(w io.Writer, styles *output.Styles) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.root == nil {
		return
	}
	if styles == nil {
		styles = output.Plain()
	}
	writeTree(w, c.root, styles)
}

type timer struct {
	collector *TimingCollector
	step      *step
}

func (t *timer) End() {
	c := t.collector
	c.mu.Lock()
	defer c.mu.Unlock()

	t.step.end = c.now()
	if c.current == t.step && t.step.parent != nil {
		c.current = t.step.parent
	}
}

// Child opens a timer under t, regardless of which timer is innermost.
func (t *timer) Child(name string) Timer {
	c := t.collector
	c.mu.Lock()
	defer c.mu.Unlock()

	s := &step{name: name, start: c.now(), parent: t.step}
	t.step.children = append(t.step.children, s)
	return &timer{collector: c, step: s}
}
