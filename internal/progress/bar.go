// Package progress renders migration progress as a terminal bar.
package progress

import (
	"io"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// Bar is a single mpb progress bar. It is not safe for concurrent Start calls.
type Bar struct {
	out  io.Writer
	name string
	p    *mpb.Progress
	bar  *mpb.Bar
}

// NewBar creates a bar that renders to out once started.
func NewBar(out io.Writer, name string) *Bar {
	return &Bar{out: out, name: name}
}

// Start renders the bar. A zero total starts the bar without a known end.
func (b *Bar) Start(total int64) {
	b.p = mpb.New(mpb.WithOutput(b.out), mpb.WithWidth(80))
	b.bar = b.p.AddBar(total,
		mpb.PrependDecorators(
			decor.Name(b.name, decor.WCSyncSpaceR),
			decor.CountersNoUnit("%d / %d", decor.WCSyncSpace),
		),
		mpb.AppendDecorators(
			decor.OnComplete(decor.AverageETA(decor.ET_STYLE_GO), "done"),
		),
	)
}

// Advance moves the bar by n documents.
func (b *Bar) Advance(n int) {
	if b.bar != nil && n > 0 {
		b.bar.IncrBy(n)
	}
}

// Current returns the number of documents counted so far.
func (b *Bar) Current() int64 {
	if b.bar == nil {
		return 0
	}
	return b.bar.Current()
}

// Finish completes the bar at its current count, which may be short of the total when
// documents failed, and waits for the final render.
func (b *Bar) Finish() {
	if b.p == nil {
		return
	}
	b.bar.SetTotal(-1, true)
	b.p.Wait()
}
