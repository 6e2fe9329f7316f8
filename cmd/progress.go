package cmd

import (
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/lupppig/obackup/internal/engine"
)

// barObserver renders engine progress events on an mpb bar. Observer
// callbacks arrive synchronously on the pipeline goroutine, so no locking
// is needed here.
type barObserver struct {
	container *mpb.Progress
	bar       *mpb.Bar
	last      int
}

func newBarObserver(name string) *barObserver {
	container := mpb.New(mpb.WithWidth(64))
	bar := container.AddBar(100,
		mpb.PrependDecorators(
			decor.Name(name, decor.WC{W: len(name) + 1}),
			decor.Percentage(),
		),
		mpb.AppendDecorators(
			decor.OnComplete(decor.Name(""), " done"),
		),
	)
	return &barObserver{container: container, bar: bar}
}

func (o *barObserver) Progress(percent int, message string) {
	if percent > o.last {
		o.bar.IncrBy(percent - o.last)
		o.last = percent
	}
}

// The engine mirrors log events to the logger itself; rendering them here
// too would duplicate every line behind the bar redraw.
func (o *barObserver) Log(message string, level engine.Level) {}

func (o *barObserver) Wait() {
	o.bar.SetTotal(100, true)
	o.container.Wait()
}
