// Package search implements the recursive, pattern-matching traversal used
// when filter text is submitted. It is separate from the flat listing scan:
// results stream in batches, the walk is cancellable between directory
// visits, and output is hard-capped with an explicit truncation signal.
package search

import (
	"context"
	"errors"
	iofs "io/fs"
	"os"
	"sync"

	"github.com/charlievieth/fastwalk"

	"github.com/paneworks/explorer/internal/debug"
	"github.com/paneworks/explorer/internal/fs"
	"github.com/paneworks/explorer/internal/pattern"
)

// DefaultMaxResults is the hard result cap when no other limit is configured.
const DefaultMaxResults = 50000

const batchSize = 600

// errCapReached stops the walk once the result cap is hit.
var errCapReached = errors.New("result cap reached")

// Summary is the terminal report of one search run.
type Summary struct {
	Matches     int  // results produced (≤ cap)
	Truncated   bool // the cap cut the walk short
	SkippedDirs int  // unreadable directories skipped, not fatal
	Cancelled   bool
}

// Engine performs capped recursive searches. One engine is shared by all
// panes; every Search call is an independent, restartable run.
type Engine struct {
	maxResults int
}

// NewEngine creates a search engine with the given result cap.
func NewEngine(maxResults int) *Engine {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	return &Engine{maxResults: maxResults}
}

// Search walks the tree under root depth-first and streams entries whose
// names match the pattern set. Setup failures (root gone or unreadable)
// return immediately. Otherwise batches arrive on the first channel until
// the walk finishes, is cancelled, or hits the cap; the summary is then
// delivered on the second channel and both are closed. Symlinked
// directories are not followed.
func (e *Engine) Search(ctx context.Context, root string, pats *pattern.Set) (<-chan fs.Batch, <-chan Summary, error) {
	if info, err := os.Stat(root); err != nil {
		return nil, nil, fs.ClassifyError(err)
	} else if !info.IsDir() {
		return nil, nil, fs.ClassifyError(iofs.ErrNotExist)
	}

	out := make(chan fs.Batch, 4)
	done := make(chan Summary, 1)

	go func() {
		defer close(out)
		defer close(done)

		var mu sync.Mutex
		var batch []fs.Entry
		sum := Summary{}

		flush := func() bool {
			if len(batch) == 0 {
				return true
			}
			b := fs.Batch{Entries: batch}
			batch = nil
			select {
			case out <- b:
				return true
			case <-ctx.Done():
				return false
			}
		}

		conf := &fastwalk.Config{Follow: false}
		walkErr := fastwalk.Walk(conf, root, func(path string, d iofs.DirEntry, err error) error {
			// Cancellation takes effect between visits, never mid-item.
			if ctx.Err() != nil {
				return ctx.Err()
			}

			if err != nil {
				mu.Lock()
				sum.SkippedDirs++
				mu.Unlock()
				debug.Log(debug.SEARCH, "skipping %q: %v", path, err)
				return nil
			}
			if path == root {
				return nil
			}

			if !pats.Match(d.Name()) {
				return nil
			}

			ent := fs.Entry{
				Name:   d.Name(),
				Parent: parentOf(path, d.Name()),
				Kind:   kindOf(d),
			}
			if info, err := fastwalk.StatDirEntry(path, d); err == nil {
				ent.Stat = fs.StatReady
				if !info.IsDir() {
					ent.Size = info.Size()
				}
				ent.ModTime = info.ModTime()
				ent.IconClass = fs.IconClassFor(ent.Name, ent.Kind, false)
			} else {
				ent.Stat = fs.StatUnavailable
			}

			mu.Lock()
			if sum.Matches >= e.maxResults {
				sum.Truncated = true
				mu.Unlock()
				return errCapReached
			}
			sum.Matches++
			batch = append(batch, ent)
			full := len(batch) >= batchSize
			mu.Unlock()

			if full {
				mu.Lock()
				ok := flush()
				mu.Unlock()
				if !ok {
					return ctx.Err()
				}
			}
			return nil
		})

		mu.Lock()
		defer mu.Unlock()
		flush()

		switch {
		case walkErr == nil:
		case errors.Is(walkErr, errCapReached):
			sum.Truncated = true
		case errors.Is(walkErr, context.Canceled) || ctx.Err() != nil:
			sum.Cancelled = true
		default:
			// Whole-walk failures other than the sentinels are rare;
			// the partial result set still stands.
			debug.Log(debug.SEARCH, "walk error under %q: %v", root, walkErr)
		}

		debug.Log(debug.SEARCH, "done root=%q matches=%d truncated=%v skipped=%d cancelled=%v",
			root, sum.Matches, sum.Truncated, sum.SkippedDirs, sum.Cancelled)
		done <- sum
	}()

	return out, done, nil
}

func parentOf(path, name string) string {
	if len(path) > len(name) {
		p := path[:len(path)-len(name)]
		// Trim the trailing separator but keep filesystem roots intact.
		if len(p) > 1 && (p[len(p)-1] == '/' || p[len(p)-1] == '\\') {
			p = p[:len(p)-1]
		}
		return p
	}
	return ""
}

func kindOf(d iofs.DirEntry) fs.Kind {
	t := d.Type()
	switch {
	case t.IsDir():
		return fs.KindDir
	case t&iofs.ModeSymlink != 0:
		return fs.KindSymlink
	case t.IsRegular() || t == 0:
		return fs.KindFile
	default:
		return fs.KindOther
	}
}
