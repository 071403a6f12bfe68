package fs

import (
	"context"
	"errors"
	"io"
	iofs "io/fs"
	"os"

	"github.com/paneworks/explorer/internal/debug"
)

// Batch is one increment of scan output, in enumeration order.
type Batch struct {
	Entries []Entry
}

// Scanner enumerates a directory's immediate children without per-item stat
// calls. Entries stream out in fixed-size batches so the first rows are
// available long before a huge directory finishes enumerating.
type Scanner struct {
	batchSize int
}

// NewScanner creates a scanner yielding batches of the given size.
func NewScanner(batchSize int) *Scanner {
	if batchSize <= 0 {
		batchSize = 400
	}
	return &Scanner{batchSize: batchSize}
}

// Scan starts enumerating dir. Start-time failures (path gone, unreadable)
// are returned immediately as ErrNotFound / ErrAccessDenied. Otherwise the
// returned channel delivers batches until enumeration completes or ctx is
// cancelled, then closes. Entries that fail a type lookup mid-scan are
// skipped, never fatal.
func (s *Scanner) Scan(ctx context.Context, dir string) (<-chan Batch, error) {
	f, err := os.Open(dir)
	if err != nil {
		debug.Log(debug.SCAN, "Scan %q: open failed: %v", dir, err)
		return nil, ClassifyError(err)
	}
	// Reject scanning a plain file up front.
	if info, err := f.Stat(); err == nil && !info.IsDir() {
		f.Close()
		debug.Log(debug.SCAN, "Scan %q: not a directory", dir)
		return nil, ClassifyError(iofs.ErrNotExist)
	}

	out := make(chan Batch, 4)
	go func() {
		defer close(out)
		defer f.Close()

		for {
			if ctx.Err() != nil {
				debug.Log(debug.SCAN, "Scan %q: cancelled", dir)
				return
			}

			dirents, err := f.ReadDir(s.batchSize)
			if len(dirents) > 0 {
				batch := Batch{Entries: make([]Entry, 0, len(dirents))}
				for _, d := range dirents {
					batch.Entries = append(batch.Entries, Entry{
						Name:   d.Name(),
						Parent: dir,
						Kind:   kindOf(d),
					})
				}
				select {
				case out <- batch:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				// io.EOF ends the scan. Anything else mid-stream is
				// logged and also ends it; completeness is eventual
				// via re-scan.
				if !errors.Is(err, io.EOF) {
					debug.Log(debug.SCAN, "Scan %q: readdir error: %v", dir, err)
				}
				return
			}
		}
	}()
	return out, nil
}

// kindOf classifies a DirEntry from its type bits alone, no stat call.
func kindOf(d iofs.DirEntry) Kind {
	t := d.Type()
	switch {
	case t.IsDir():
		return KindDir
	case t&iofs.ModeSymlink != 0:
		return KindSymlink
	case t.IsRegular() || t == 0:
		return KindFile
	default:
		return KindOther
	}
}
