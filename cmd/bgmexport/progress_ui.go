package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/progress"

	"bgmexport/internal/collectionsync"
)

// progressUI renders sync progress as terminal bars. It implements
// collectionsync.Observer.
type progressUI struct {
	mu      sync.Mutex
	writer  progress.Writer
	pages   *progress.Tracker
	details *progress.Tracker
	started bool
}

func newProgressUI(out io.Writer) *progressUI {
	pw := progress.NewWriter()
	pw.SetOutputWriter(out)
	pw.SetAutoStop(false)
	pw.SetTrackerLength(30)
	pw.SetUpdateFrequency(100 * time.Millisecond)
	pw.SetStyle(progress.StyleDefault)
	pw.Style().Visibility.ETA = true
	pw.Style().Visibility.Value = true
	pw.Style().Options.PercentFormat = "%4.0f%%"
	return &progressUI{writer: pw}
}

func (p *progressUI) start() {
	if !p.started {
		p.started = true
		go p.writer.Render()
	}
}

func (p *progressUI) PageDone(ev collectionsync.PageEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pages == nil {
		p.pages = &progress.Tracker{Message: "Collections", Units: progress.UnitsDefault}
		p.writer.AppendTracker(p.pages)
		p.start()
	}
	if ev.Cursor.TotalKnown {
		p.pages.UpdateTotal(int64(ev.Cursor.Total))
	}
	p.pages.SetValue(int64(ev.Cursor.Accumulated))
	p.pages.UpdateMessage(fmt.Sprintf("Collections (%d cached, %d fetched)", ev.Cursor.CachedPages, ev.Cursor.FetchedPages))
	if ev.Cursor.State == collectionsync.StateDone || (ev.Cursor.TotalKnown && ev.Cursor.Accumulated >= ev.Cursor.Total) {
		p.pages.MarkAsDone()
	}
}

func (p *progressUI) DetailStarted(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pages != nil && !p.pages.IsDone() {
		p.pages.MarkAsDone()
	}
	p.details = &progress.Tracker{Message: "Episode progress", Total: int64(total), Units: progress.UnitsDefault}
	p.writer.AppendTracker(p.details)
	p.start()
}

func (p *progressUI) DetailDone(ev collectionsync.DetailEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.details == nil {
		return
	}
	p.details.Increment(1)
	if ev.Index >= ev.Total {
		p.details.MarkAsDone()
	}
}

// Stop flushes the final frame and stops rendering.
func (p *progressUI) Stop() {
	p.mu.Lock()
	started := p.started
	p.mu.Unlock()
	if !started {
		return
	}
	// Give the renderer one tick to draw completed trackers.
	time.Sleep(150 * time.Millisecond)
	p.writer.Stop()
	for p.writer.IsRenderInProgress() {
		time.Sleep(10 * time.Millisecond)
	}
}
