package fs

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/paneworks/explorer/internal/debug"
)

// StatResult carries the filled metadata for one entry back to the pane that
// requested it. Gen is the snapshot generation the request was tagged with;
// results for a stale generation must be discarded by the consumer.
type StatResult struct {
	Gen    uint64
	Parent string
	Name   string

	Size      int64
	ModTime   time.Time
	IconClass string
	Stat      StatState
}

// Enricher stats visible rows in the background, one batch per visible-row
// window. A new request cancels the previous batch, so repeated invocation
// while scrolling is cheap; stale partial results are simply overwritten by
// the caller because every result names the row it belongs to.
type Enricher struct {
	batchLimit int
	results    chan StatResult

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewEnricher creates an enricher that stats at most batchLimit rows per
// request cycle.
func NewEnricher(batchLimit int) *Enricher {
	if batchLimit <= 0 {
		batchLimit = 256
	}
	return &Enricher{
		batchLimit: batchLimit,
		results:    make(chan StatResult, 64),
	}
}

// Results delivers filled metadata. The channel is never closed; consumers
// stop reading when their pane shuts down.
func (e *Enricher) Results() <-chan StatResult {
	return e.results
}

// Request starts enriching the given entries, cancelling any batch already in
// flight. Entries already enriched are skipped. coarse limits icon classes to
// the folder/file distinction. The work runs on its own goroutine; results
// arrive tagged with gen.
func (e *Enricher) Request(gen uint64, coarse bool, entries []Entry) {
	e.mu.Lock()
	if e.cancel != nil {
		e.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.mu.Unlock()

	batch := make([]Entry, 0, e.batchLimit)
	for _, ent := range entries {
		if ent.Stat == StatReady {
			continue
		}
		batch = append(batch, ent)
		if len(batch) >= e.batchLimit {
			break
		}
	}
	if len(batch) == 0 {
		return
	}

	debug.Log(debug.ENRICH, "Request: gen=%d rows=%d coarse=%v", gen, len(batch), coarse)

	go func() {
		for _, ent := range batch {
			if ctx.Err() != nil {
				debug.Log(debug.ENRICH, "batch cancelled at gen=%d", gen)
				return
			}
			res := statEntry(gen, ent, coarse)
			select {
			case e.results <- res:
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Cancel stops any in-flight batch, e.g. when the pane navigates away.
func (e *Enricher) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}

// statEntry fills one entry's metadata. A failed stat downgrades the entry to
// metadata-unavailable rather than failing the batch.
func statEntry(gen uint64, ent Entry, coarse bool) StatResult {
	res := StatResult{
		Gen:       gen,
		Parent:    ent.Parent,
		Name:      ent.Name,
		IconClass: IconClassFor(ent.Name, ent.Kind, coarse),
	}

	info, err := os.Lstat(ent.Path())
	if err != nil {
		debug.Log(debug.ENRICH, "stat %q failed: %v", ent.Path(), err)
		res.Stat = StatUnavailable
		return res
	}

	res.Stat = StatReady
	if !info.IsDir() {
		res.Size = info.Size()
	}
	res.ModTime = info.ModTime()
	return res
}
