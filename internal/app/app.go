// Package app wires the panes, engines, and persistence into one session.
package app

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/paneworks/explorer/internal/config"
	"github.com/paneworks/explorer/internal/debug"
	"github.com/paneworks/explorer/internal/fileops"
	"github.com/paneworks/explorer/internal/listing"
	"github.com/paneworks/explorer/internal/search"
	"github.com/paneworks/explorer/internal/store"
	"github.com/paneworks/explorer/internal/watch"
)

// Orchestrator owns the pane controllers and the shared engines.
type Orchestrator struct {
	cfg      *config.Config
	panes    []*listing.Controller
	watchers []*watch.Watcher
	search   *search.Engine
	ops      *fileops.Engine
	store    *store.DB
	menu     MenuProvider
	home     string

	storeReady bool
	done       chan struct{}
}

// New builds a session with paneCount panes. The count must be one of the
// supported layouts.
func New(cfg *config.Config, paneCount int) (*Orchestrator, error) {
	if !config.ValidPaneCount(paneCount) {
		return nil, fmt.Errorf("unsupported pane count %d (choose from %v)", paneCount, config.PaneCounts)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		home = string(filepath.Separator)
	}

	o := &Orchestrator{
		cfg:    cfg,
		search: search.NewEngine(cfg.Search.MaxResults),
		ops:    fileops.NewEngine(cfg),
		store:  store.NewDB(),
		menu:   NewMenuProvider(),
		home:   home,
		done:   make(chan struct{}),
	}

	for i := 0; i < paneCount; i++ {
		w, err := watch.New(cfg.Watcher.DebounceMs)
		if err != nil {
			// Panes work without notifications; they fall back to
			// manual refresh.
			debug.Log(debug.WATCH, "pane %d: watcher unavailable: %v", i, err)
			w = nil
		}
		o.watchers = append(o.watchers, w)
		o.panes = append(o.panes, listing.NewController(cfg, w))
	}

	return o, nil
}

// Start opens the persistence layer, restores pane state, and navigates each
// pane to its starting path. startPaths override persisted paths pane by
// pane; extras beyond the pane count are ignored.
func (o *Orchestrator) Start(startPaths []string) error {
	configDir, _ := os.UserConfigDir()
	dbPath := filepath.Join(configDir, "explorer", "explorer.db")
	if err := o.store.Open(dbPath); err != nil {
		log.Printf("Failed to open DB: %v", err)
	} else {
		o.storeReady = true
		go o.store.Start()
	}

	restored := o.restorePanes()

	for i, pane := range o.panes {
		switch {
		case i < len(startPaths) && startPaths[i] != "":
			pane.Navigate(ExpandPath(o.home, o.home, startPaths[i]))
		case restored[i] != "":
			// Path already applied through ApplyPaneState.
		default:
			pane.Navigate(o.home)
		}
	}

	go o.consumeResults()
	return nil
}

// restorePanes applies persisted pane state and returns which panes got a
// restored path.
func (o *Orchestrator) restorePanes() []string {
	restored := make([]string, len(o.panes))
	if !o.cfg.Behavior.RestoreLastPath || !o.storeReady {
		return restored
	}

	o.store.RequestChan <- store.Request{Op: store.FetchPanes}
	resp := <-o.store.ResponseChan
	if resp.Err != nil {
		debug.Log(debug.STORE, "pane restore failed: %v", resp.Err)
		return restored
	}

	for _, rec := range resp.Panes {
		if rec.PaneID < 0 || rec.PaneID >= len(o.panes) {
			continue
		}
		if _, err := os.Stat(rec.State.Path); err != nil {
			continue
		}
		o.panes[rec.PaneID].ApplyPaneState(rec.State)
		restored[rec.PaneID] = rec.State.Path
	}
	return restored
}

// consumeResults refreshes panes when a job finishes so listings pick up the
// new filesystem state even without a watcher.
func (o *Orchestrator) consumeResults() {
	for {
		select {
		case <-o.done:
			return
		case res := <-o.ops.Results():
			debug.Log(debug.APP, "job %s finished (%s), refreshing panes", res.JobID, res.State)
			for _, pane := range o.panes {
				pane.Refresh()
			}
		}
	}
}

// Pane returns the controller for pane i.
func (o *Orchestrator) Pane(i int) *listing.Controller {
	return o.panes[i]
}

// PaneCount is the number of panes in this session.
func (o *Orchestrator) PaneCount() int {
	return len(o.panes)
}

// Ops exposes the file-operation engine.
func (o *Orchestrator) Ops() *fileops.Engine {
	return o.ops
}

// Search exposes the recursive search engine.
func (o *Orchestrator) Search() *search.Engine {
	return o.search
}

// Menu exposes the platform opener.
func (o *Orchestrator) Menu() MenuProvider {
	return o.menu
}

// Home is the session's home directory.
func (o *Orchestrator) Home() string {
	return o.home
}

// SavePanes persists every pane's current state.
func (o *Orchestrator) SavePanes() {
	if !o.storeReady {
		return
	}
	for i, pane := range o.panes {
		o.store.RequestChan <- store.Request{
			Op:   store.SavePane,
			Pane: store.PaneRecord{PaneID: i, State: pane.PaneState()},
		}
	}
}

// Close persists pane state and shuts everything down.
func (o *Orchestrator) Close() {
	o.SavePanes()
	close(o.done)
	for _, pane := range o.panes {
		pane.Close()
	}
	for _, w := range o.watchers {
		if w != nil {
			w.Close()
		}
	}
	if o.storeReady {
		o.store.Close()
	}
}
