package fileops

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/paneworks/explorer/internal/config"
	"github.com/paneworks/explorer/internal/debug"
	"github.com/paneworks/explorer/internal/fs"
	"github.com/paneworks/explorer/internal/trash"
)

var (
	// ErrDestInaccessible is returned by Submit when the destination
	// directory cannot be used.
	ErrDestInaccessible = errors.New("destination directory inaccessible")

	// ErrSourceContainsDest is returned by Submit when a source directory
	// contains the destination, which would recurse forever.
	ErrSourceContainsDest = errors.New("cannot copy a directory into itself")
)

// Engine runs file-operation jobs. Jobs execute concurrently with each
// other; the items inside one job run strictly in submission order.
type Engine struct {
	chunkSize     int
	sizeScanFiles int
	sizeScanTime  time.Duration

	conflicts chan ConflictRequest
	progress  chan Progress
	results   chan Result

	mu   sync.Mutex
	jobs map[string]context.CancelFunc

	// renameHook is swapped in tests to force the cross-device path.
	renameHook func(oldpath, newpath string) error
}

// NewEngine builds an engine from the file-operation settings.
func NewEngine(cfg *config.Config) *Engine {
	return &Engine{
		chunkSize:     cfg.FileOps.CopyChunkSize,
		sizeScanFiles: cfg.FileOps.SizeScanFileLimit,
		sizeScanTime:  time.Duration(cfg.FileOps.SizeScanTimeMs) * time.Millisecond,
		conflicts:     make(chan ConflictRequest),
		progress:      make(chan Progress, 16),
		results:       make(chan Result, 4),
		jobs:          make(map[string]context.CancelFunc),
		renameHook:    os.Rename,
	}
}

// Conflicts delivers collision prompts. Every received request must be
// answered with Resolve or its job stays blocked until cancelled.
func (e *Engine) Conflicts() <-chan ConflictRequest {
	return e.conflicts
}

// Progress delivers throttled progress reports. Reports are dropped, never
// blocked on, when the consumer lags.
func (e *Engine) Progress() <-chan Progress {
	return e.progress
}

// Results delivers one terminal Result per submitted job.
func (e *Engine) Results() <-chan Result {
	return e.results
}

// Submit validates and starts a job, returning its ID. Validation failures
// reject the whole job before any item is touched.
func (e *Engine) Submit(job Job) (string, error) {
	if len(job.Sources) == 0 {
		return "", errors.New("no sources")
	}

	if job.Kind == KindCopy || job.Kind == KindMove {
		info, err := os.Stat(job.DestDir)
		if err != nil || !info.IsDir() {
			return "", fmt.Errorf("%w: %s", ErrDestInaccessible, job.DestDir)
		}
		for _, src := range job.Sources {
			si, err := os.Lstat(src)
			if err == nil && si.IsDir() && isWithin(src, job.DestDir) {
				return "", fmt.Errorf("%w: %s", ErrSourceContainsDest, src)
			}
		}
	}

	job.ID = newJobID()
	ctx, cancel := context.WithCancel(context.Background())

	e.mu.Lock()
	e.jobs[job.ID] = cancel
	e.mu.Unlock()

	debug.Log(debug.OPS, "submit %s job %s: %d sources -> %q",
		job.Kind, job.ID, len(job.Sources), job.DestDir)

	go e.run(ctx, job)
	return job.ID, nil
}

// Cancel requests cancellation of a running job. A cancelled job stops after
// the current chunk; items already completed stay in place.
func (e *Engine) Cancel(jobID string) {
	e.mu.Lock()
	cancel := e.jobs[jobID]
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (e *Engine) run(ctx context.Context, job Job) {
	defer func() {
		e.mu.Lock()
		delete(e.jobs, job.ID)
		e.mu.Unlock()
	}()

	var bytesTotal int64
	if job.Kind == KindCopy || job.Kind == KindMove {
		bytesTotal = e.inventory(ctx, job.Sources)
	}

	var bytesDone atomic.Int64
	res := Result{JobID: job.ID, State: StateCompleted}

	// Standing conflict answer once the caller picks apply-to-all.
	var standing *ConflictAction

	for i, src := range job.Sources {
		if ctx.Err() != nil {
			res.State = StateCancelled
			break
		}

		e.report(Progress{
			JobID:       job.ID,
			ItemIndex:   i,
			ItemCount:   len(job.Sources),
			BytesDone:   bytesDone.Load(),
			BytesTotal:  bytesTotal,
			CurrentPath: src,
		})

		onWrite := func(n int64) {
			e.report(Progress{
				JobID:       job.ID,
				ItemIndex:   i,
				ItemCount:   len(job.Sources),
				BytesDone:   bytesDone.Add(n),
				BytesTotal:  bytesTotal,
				CurrentPath: src,
			})
		}

		var err error
		var skipped bool
		switch job.Kind {
		case KindCopy:
			skipped, err = e.copyItem(ctx, job, src, standing, &standing, onWrite)
		case KindMove:
			skipped, err = e.moveItem(ctx, job, src, standing, &standing, onWrite)
		case KindDelete:
			err = e.deleteItem(job, src)
		}

		switch {
		case err != nil && errors.Is(err, context.Canceled):
			res.State = StateCancelled
		case err != nil:
			debug.Log(debug.OPS, "job %s item %q failed: %v", job.ID, src, err)
			res.Failed++
			if res.Err == nil {
				res.Err = fmt.Errorf("%s: %w", filepath.Base(src), err)
			}
		case skipped:
			res.Skipped++
		default:
			res.Completed++
		}

		if res.State == StateCancelled {
			break
		}
	}

	if res.State != StateCancelled && res.Failed > 0 {
		res.State = StateFailed
	}

	debug.Log(debug.OPS, "job %s done: state=%s completed=%d skipped=%d failed=%d",
		job.ID, res.State, res.Completed, res.Skipped, res.Failed)
	e.results <- res
}

// copyItem copies one source into the destination directory, resolving a
// name collision first if needed.
func (e *Engine) copyItem(ctx context.Context, job Job, src string, standing *ConflictAction, standingOut **ConflictAction, onWrite func(int64)) (skipped bool, err error) {
	srcInfo, err := os.Lstat(src)
	if err != nil {
		return false, fs.ClassifyError(err)
	}

	dst := filepath.Join(job.DestDir, filepath.Base(src))
	dst, skipped, err = e.resolveDest(ctx, job, src, dst, srcInfo, standing, standingOut)
	if err != nil || skipped {
		return skipped, err
	}

	if srcInfo.IsDir() {
		return false, e.copyDir(ctx, src, dst, onWrite)
	}
	return false, e.copyFile(ctx, src, dst, onWrite)
}

// moveItem moves one source into the destination directory. A plain rename
// is tried first; when the destination is on another device the item is
// copied and the source removed only after the copy fully succeeds.
func (e *Engine) moveItem(ctx context.Context, job Job, src string, standing *ConflictAction, standingOut **ConflictAction, onWrite func(int64)) (skipped bool, err error) {
	srcInfo, err := os.Lstat(src)
	if err != nil {
		return false, fs.ClassifyError(err)
	}

	dst := filepath.Join(job.DestDir, filepath.Base(src))
	dst, skipped, err = e.resolveDest(ctx, job, src, dst, srcInfo, standing, standingOut)
	if err != nil || skipped {
		return skipped, err
	}

	if err := e.renameHook(src, dst); err == nil {
		return false, nil
	}

	// Cross-device fallback. The source survives any failure in the copy.
	if srcInfo.IsDir() {
		if err := e.copyDir(ctx, src, dst, onWrite); err != nil {
			return false, err
		}
		return false, os.RemoveAll(src)
	}
	if err := e.copyFile(ctx, src, dst, onWrite); err != nil {
		return false, err
	}
	return false, os.Remove(src)
}

// resolveDest applies the conflict policy for dst. It returns the final
// destination path, or skipped=true when the item should be left alone.
func (e *Engine) resolveDest(ctx context.Context, job Job, src, dst string, srcInfo os.FileInfo, standing *ConflictAction, standingOut **ConflictAction) (string, bool, error) {
	dstInfo, err := os.Lstat(dst)
	if err != nil {
		if os.IsNotExist(err) {
			return dst, false, nil // no collision
		}
		return "", false, err
	}

	var action ConflictAction
	if standing != nil {
		action = *standing
	} else {
		decision, err := e.askConflict(ctx, newConflictRequest(job.ID, src, dst, srcInfo, dstInfo))
		if err != nil {
			return "", false, err
		}
		action = decision.Action
		if decision.ApplyToAll {
			a := action
			*standingOut = &a
		}
	}

	switch action {
	case ActionSkip:
		return "", true, nil
	case ActionKeepBoth:
		return uniqueDest(job.DestDir, filepath.Base(src)), false, nil
	default: // overwrite
		if dstInfo.IsDir() {
			if err := os.RemoveAll(dst); err != nil {
				return "", false, err
			}
		} else if err := os.Remove(dst); err != nil {
			return "", false, err
		}
		return dst, false, nil
	}
}

func (e *Engine) deleteItem(job Job, src string) error {
	if _, err := os.Lstat(src); err != nil {
		return fs.ClassifyError(err)
	}
	if !job.Permanent && trash.IsAvailable() {
		if err := trash.MoveToTrash(src); err == nil {
			return nil
		}
		// Trash refused the item (cross-volume, odd permissions); fall
		// through to a permanent delete.
		debug.Log(debug.OPS, "trash failed for %q, deleting permanently", src)
	}
	return trash.PermanentDelete(src)
}

// report never blocks; a slow consumer just misses intermediate updates.
func (e *Engine) report(p Progress) {
	select {
	case e.progress <- p:
	default:
	}
}
