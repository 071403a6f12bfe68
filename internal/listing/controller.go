package listing

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/paneworks/explorer/internal/config"
	"github.com/paneworks/explorer/internal/debug"
	"github.com/paneworks/explorer/internal/fs"
	"github.com/paneworks/explorer/internal/pattern"
	"github.com/paneworks/explorer/internal/watch"
)

// Controller is the single source of truth for one pane's listing. All
// mutations go through methods that hold the mutex; the UI reads via View(),
// which returns an immutable snapshot. Scans are ordered by a strictly
// increasing generation; results tagged with an older generation are dropped.
type Controller struct {
	cfg      *config.Config
	scanner  *fs.Scanner
	enricher *fs.Enricher
	watcher  *watch.Watcher // nil when notifications are unavailable

	mu sync.RWMutex

	path         string
	history      []string
	historyIndex int

	sortColumn   SortColumn
	sortDesc     bool
	filterRaw    string
	filter       *pattern.Set
	showDotfiles bool

	gen     uint64
	mode    Mode
	scanErr error

	raw       []fs.Entry // enumeration order, unfiltered
	view      []fs.Entry // filtered + sorted
	viewIndex map[string]int

	scanCancel context.CancelFunc

	updates chan struct{}
	done    chan struct{}
}

// NewController creates a pane controller. watcher may be nil; the pane then
// relies on manual refresh only.
func NewController(cfg *config.Config, watcher *watch.Watcher) *Controller {
	c := &Controller{
		cfg:          cfg,
		scanner:      fs.NewScanner(cfg.Listing.ScanBatchSize),
		enricher:     fs.NewEnricher(cfg.Listing.EnrichBatchLimit),
		watcher:      watcher,
		historyIndex: -1,
		filter:       pattern.Compile(nil),
		showDotfiles: cfg.Behavior.ShowDotfiles,
		updates:      make(chan struct{}, 1),
		done:         make(chan struct{}),
	}
	go c.loop()
	return c
}

// Updates signals that View() has new content. Notifications are coalesced;
// one receive may cover several mutations.
func (c *Controller) Updates() <-chan struct{} {
	return c.updates
}

// View returns an immutable snapshot of the pane.
func (c *Controller) View() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entries := make([]fs.Entry, len(c.view))
	copy(entries, c.view)

	return Snapshot{
		Path:       c.path,
		Gen:        c.gen,
		Mode:       c.mode,
		Entries:    entries,
		Total:      len(c.raw),
		Err:        c.scanErr,
		SortColumn: c.sortColumn,
		SortDesc:   c.sortDesc,
		Filter:     c.filterRaw,
		CanBack:    c.historyIndex > 0,
		CanForward: c.historyIndex < len(c.history)-1,
	}
}

// Navigate pushes path onto history and starts a scan.
func (c *Controller) Navigate(path string) {
	c.mu.Lock()
	// Truncate forward history if we're not at the end.
	if c.historyIndex >= 0 && c.historyIndex < len(c.history)-1 {
		c.history = c.history[:c.historyIndex+1]
	}
	c.history = append(c.history, path)
	c.historyIndex = len(c.history) - 1

	// Bounded history, oldest entries dropped.
	if limit := c.cfg.Listing.HistoryLimit; len(c.history) > limit {
		excess := len(c.history) - limit
		c.history = c.history[excess:]
		c.historyIndex -= excess
		if c.historyIndex < 0 {
			c.historyIndex = 0
		}
	}
	c.mu.Unlock()

	c.startScan(path)
}

// Back moves one step back in history, falling back to the parent directory
// when there is nowhere else to go.
func (c *Controller) Back() {
	c.mu.Lock()
	if c.historyIndex > 0 {
		c.historyIndex--
		path := c.history[c.historyIndex]
		c.mu.Unlock()
		c.startScan(path)
		return
	}
	parent := filepath.Dir(c.path)
	atRoot := parent == c.path
	c.mu.Unlock()

	if !atRoot {
		c.Navigate(parent)
	}
}

// Forward moves one step forward in history.
func (c *Controller) Forward() {
	c.mu.Lock()
	if c.historyIndex >= len(c.history)-1 {
		c.mu.Unlock()
		return
	}
	c.historyIndex++
	path := c.history[c.historyIndex]
	c.mu.Unlock()
	c.startScan(path)
}

// Up navigates to the parent directory.
func (c *Controller) Up() {
	c.mu.RLock()
	parent := filepath.Dir(c.path)
	atRoot := parent == c.path
	c.mu.RUnlock()
	if !atRoot {
		c.Navigate(parent)
	}
}

// Refresh re-scans the current path without touching history.
func (c *Controller) Refresh() {
	c.mu.RLock()
	path := c.path
	c.mu.RUnlock()
	if path != "" {
		c.startScan(path)
	}
}

// SetSort changes the active sort and rebuilds the view.
func (c *Controller) SetSort(col SortColumn, desc bool) {
	c.mu.Lock()
	c.sortColumn = col
	c.sortDesc = desc
	c.rebuildLocked()
	c.mu.Unlock()
	c.notify()
}

// SetFilter applies wildcard patterns to the current snapshot. Filtering is
// a pure predicate over entry names; no disk access happens here.
func (c *Controller) SetFilter(raw string) {
	c.mu.Lock()
	c.filterRaw = raw
	c.filter = pattern.CompileString(raw)
	c.rebuildLocked()
	c.mu.Unlock()
	c.notify()
}

// ClearFilter restores the unfiltered snapshot view.
func (c *Controller) ClearFilter() {
	c.SetFilter("")
}

// SetShowDotfiles toggles dot-prefixed entries in the view.
func (c *Controller) SetShowDotfiles(show bool) {
	c.mu.Lock()
	c.showDotfiles = show
	c.rebuildLocked()
	c.mu.Unlock()
	c.notify()
}

// RequestVisible asks for metadata on the view rows [lo, hi). Safe to call
// repeatedly as the visible window scrolls; a new request supersedes the
// previous batch.
func (c *Controller) RequestVisible(lo, hi int) {
	c.mu.RLock()
	gen := c.gen
	coarse := c.mode != ModeFull
	if lo < 0 {
		lo = 0
	}
	if hi > len(c.view) {
		hi = len(c.view)
	}
	var want []fs.Entry
	for i := lo; i < hi; i++ {
		if c.view[i].Stat == fs.StatPending {
			want = append(want, c.view[i])
		}
	}
	c.mu.RUnlock()

	if len(want) > 0 {
		c.enricher.Request(gen, coarse, want)
	}
}

// PaneState exports the persisted slice of this pane's state.
func (c *Controller) PaneState() PaneState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return PaneState{Path: c.path, SortColumn: c.sortColumn, SortDesc: c.sortDesc}
}

// ApplyPaneState restores persisted sort settings and navigates to the
// persisted path.
func (c *Controller) ApplyPaneState(st PaneState) {
	c.mu.Lock()
	c.sortColumn = st.SortColumn
	c.sortDesc = st.SortDesc
	c.mu.Unlock()
	if st.Path != "" {
		c.Navigate(st.Path)
	}
}

// Close tears the pane down: cancels scanning and enrichment and disarms the
// watcher. The controller must not be used afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.scanCancel != nil {
		c.scanCancel()
		c.scanCancel = nil
	}
	c.mu.Unlock()

	c.enricher.Cancel()
	if c.watcher != nil {
		c.watcher.Disarm()
	}
	close(c.done)
}

// startScan abandons whatever the pane was doing and enumerates path under a
// fresh generation.
func (c *Controller) startScan(path string) {
	c.mu.Lock()
	if c.scanCancel != nil {
		c.scanCancel()
	}
	c.enricher.Cancel()
	if c.watcher != nil {
		c.watcher.Disarm()
	}

	c.gen++
	gen := c.gen
	c.path = path
	c.mode = ModeScanning
	c.scanErr = nil
	c.raw = nil
	c.rebuildLocked()

	ctx, cancel := context.WithCancel(context.Background())
	c.scanCancel = cancel
	c.mu.Unlock()
	c.notify()

	debug.Log(debug.APP, "startScan: path=%q gen=%d", path, gen)

	batches, err := c.scanner.Scan(ctx, path)
	if err != nil {
		c.finishScanError(gen, path, err)
		return
	}

	go func() {
		for batch := range batches {
			c.mu.Lock()
			if c.gen != gen {
				c.mu.Unlock()
				return
			}
			c.raw = append(c.raw, batch.Entries...)
			c.rebuildLocked()
			c.mu.Unlock()
			c.notify()
		}
		if ctx.Err() != nil {
			return
		}
		c.finishScan(gen, path)
	}()
}

// finishScan runs the threshold policy once enumeration completes.
func (c *Controller) finishScan(gen uint64, path string) {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}
	count := len(c.raw)
	switch {
	case count >= c.cfg.Listing.HighWaterEntries:
		c.mode = ModeFast
	case count >= c.cfg.Listing.CoarseIconEntries:
		c.mode = ModeEnriching
	default:
		c.mode = ModeFull
	}
	mode := c.mode
	c.mu.Unlock()
	c.notify()

	debug.Log(debug.APP, "scan complete: path=%q gen=%d count=%d mode=%s", path, gen, count, mode)

	if mode == ModeFull && c.watcher != nil && !c.watcher.Lost() {
		if err := c.watcher.Arm(path); err != nil {
			debug.Log(debug.WATCH, "arm %q failed: %v", path, err)
		}
	}
}

func (c *Controller) finishScanError(gen uint64, path string, err error) {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}
	c.scanErr = err
	c.mode = ModeIdle
	c.mu.Unlock()
	c.notify()

	debug.Log(debug.APP, "scan failed: path=%q err=%v", path, err)

	// Vanished path: fall back to the nearest surviving ancestor.
	if errors.Is(err, fs.ErrNotFound) {
		parent := filepath.Dir(path)
		if parent != path {
			c.Navigate(parent)
		}
	}
}

// loop applies enrichment results and watcher notifications.
func (c *Controller) loop() {
	var notifyCh <-chan string
	if c.watcher != nil {
		notifyCh = c.watcher.Notify()
	}
	for {
		select {
		case <-c.done:
			return

		case res := <-c.enricher.Results():
			c.applyStat(res)

		case dir := <-notifyCh:
			c.mu.RLock()
			current := c.path == dir
			c.mu.RUnlock()
			if current {
				debug.Log(debug.APP, "change detected in %q, re-scanning", dir)
				c.Refresh()
			}
		}
	}
}

// applyStat merges one enrichment result into the snapshot. Results tagged
// with a stale generation are discarded, never applied to a newer snapshot.
func (c *Controller) applyStat(res fs.StatResult) {
	c.mu.Lock()
	if res.Gen != c.gen || res.Parent != c.path {
		c.mu.Unlock()
		return
	}
	for i := range c.raw {
		if c.raw[i].Name == res.Name {
			c.raw[i].Size = res.Size
			c.raw[i].ModTime = res.ModTime
			c.raw[i].IconClass = res.IconClass
			c.raw[i].Stat = res.Stat
			break
		}
	}
	if vi, ok := c.viewIndex[res.Name]; ok {
		c.view[vi].Size = res.Size
		c.view[vi].ModTime = res.ModTime
		c.view[vi].IconClass = res.IconClass
		c.view[vi].Stat = res.Stat
	}
	c.mu.Unlock()
	c.notify()
}

// rebuildLocked recomputes the filtered, sorted view. Caller holds the lock.
// Enrichment does not trigger a rebuild, so filled-in sizes and dates do not
// reshuffle rows under the cursor; the order updates on the next re-scan or
// sort change.
func (c *Controller) rebuildLocked() {
	view := make([]fs.Entry, 0, len(c.raw))
	for _, e := range c.raw {
		if !c.showDotfiles && strings.HasPrefix(e.Name, ".") {
			continue
		}
		if c.filter.Match(e.Name) {
			view = append(view, e)
		}
	}
	c.sortLocked(view)

	c.view = view
	c.viewIndex = make(map[string]int, len(view))
	for i, e := range view {
		c.viewIndex[e.Name] = i
	}
}

// sortLocked sorts entries stably: directories strictly before files, then
// by the active column. Descending order flips the column comparison only;
// directories stay on top.
func (c *Controller) sortLocked(entries []fs.Entry) {
	col := c.sortColumn
	desc := c.sortDesc
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.IsDir() != b.IsDir() {
			return a.IsDir()
		}

		var less bool
		switch col {
		case SortBySize:
			if a.Size == b.Size {
				less = nameLess(a.Name, b.Name)
			} else {
				less = a.Size < b.Size
			}
		case SortByDate:
			if a.ModTime.Equal(b.ModTime) {
				less = nameLess(a.Name, b.Name)
			} else {
				less = a.ModTime.Before(b.ModTime)
			}
		case SortByType:
			extA := strings.ToLower(filepath.Ext(a.Name))
			extB := strings.ToLower(filepath.Ext(b.Name))
			if extA == extB {
				less = nameLess(a.Name, b.Name)
			} else {
				less = extA < extB
			}
		default:
			less = nameLess(a.Name, b.Name)
		}

		if desc {
			return !less
		}
		return less
	})
}

func nameLess(a, b string) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	if la == lb {
		return a < b
	}
	return la < lb
}

// notify wakes the UI without blocking; stacked notifications coalesce.
func (c *Controller) notify() {
	select {
	case c.updates <- struct{}{}:
	default:
	}
}
