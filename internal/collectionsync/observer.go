package collectionsync

// PageEvent describes one finished collection page.
type PageEvent struct {
	Cursor    Cursor
	FromCache bool
	Entries   int
}

// DetailEvent describes one finished subject during enrichment.
type DetailEvent struct {
	SubjectID int64
	Index     int
	Total     int
	FromCache bool
	Missing   bool
	Err       error
}

// Observer receives progress callbacks. Implementations must be cheap; they
// run on the sync goroutine.
type Observer interface {
	PageDone(PageEvent)
	DetailStarted(total int)
	DetailDone(DetailEvent)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) PageDone(PageEvent) {}

func (NopObserver) DetailStarted(int) {}

func (NopObserver) DetailDone(DetailEvent) {}
