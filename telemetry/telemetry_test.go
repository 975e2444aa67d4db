package telemetry

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
)

// clock advances by step on every reading.
func clock(step time.Duration) func() time.Time {
	now := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		now = now.Add(step)
		return now
	}
}

func report(c Collector) string {
	var buf bytes.Buffer
	c.Report(&buf, nil)
	return buf.String()
}

func TestFromContext(t *testing.T) {
	t.Run("Missing", func(t *testing.T) {
		collector := FromContext(context.Background())
		timer := collector.Start("convert")
		timer.Child("load").End()
		timer.End()
		assert.Equal(t, "", report(collector))
	})

	t.Run("Present", func(t *testing.T) {
		collector := NewTimingCollector()
		ctx := WithCollector(context.Background(), collector)
		assert.Equal[Collector](t, collector, FromContext(ctx))
	})
}

func TestTimingCollector(t *testing.T) {
	tests := []struct {
		name string
		run  func(c *TimingCollector)
		want string
	}{
		{
			name: "Empty",
			run:  func(c *TimingCollector) {},
			want: "",
		},
		{
			name: "Single",
			run:  func(c *TimingCollector) { c.Start("convert").End() },
			want: "convert: 10ms\n",
		},
		{
			name: "Nested",
			run: func(c *TimingCollector) {
				root := c.Start("convert")
				c.Start("loader.Load").End()
				c.Start("convert.Convert").End()
				root.End()
			},
			want: "convert: 50ms\n" +
				"├─ loader.Load: 10ms (20%)\n" +
				"└─ convert.Convert: 10ms (20%)\n",
		},
		{
			name: "Deep",
			run: func(c *TimingCollector) {
				root := c.Start("convert")
				load := c.Start("loader.Load")
				c.Start("loader.process").End()
				load.End()
				root.End()
			},
			want: "convert: 50ms\n" +
				"└─ loader.Load: 30ms (60%)\n" +
				"   └─ loader.process: 10ms (33%)\n",
		},
		{
			name: "Child",
			run: func(c *TimingCollector) {
				root := c.Start("convert")
				root.Child("convert.gains").End()
				root.End()
			},
			want: "convert: 30ms\n" +
				"└─ convert.gains: 10ms (33%)\n",
		},
		{
			name: "Running",
			run: func(c *TimingCollector) {
				c.Start("convert")
			},
			want: "convert: 0ms\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewTimingCollector()
			c.now = clock(10 * time.Millisecond)
			tt.run(c)
			assert.Equal(t, tt.want, report(c))
		})
	}
}

func TestTimingCollectorSlowStep(t *testing.T) {
	c := NewTimingCollector()
	c.now = clock(1500 * time.Millisecond)
	c.Start("convert").End()
	assert.Equal(t, "convert: 1.50s\n", report(c))
}
