package fileops

import (
	"context"
	"os"
	"time"
)

// ConflictAction is the caller's answer to a destination collision.
type ConflictAction int

const (
	ActionOverwrite ConflictAction = iota
	ActionSkip
	ActionKeepBoth
)

func (a ConflictAction) String() string {
	switch a {
	case ActionOverwrite:
		return "overwrite"
	case ActionSkip:
		return "skip"
	case ActionKeepBoth:
		return "keep both"
	default:
		return "unknown"
	}
}

// ConflictDecision carries the answer back to the engine. ApplyToAll makes
// the action the standing answer for the rest of the job.
type ConflictDecision struct {
	Action     ConflictAction
	ApplyToAll bool
}

// ConflictRequest describes one collision. The engine blocks the job until
// Resolve is called; other jobs keep running.
type ConflictRequest struct {
	JobID  string
	Source string
	Dest   string

	SrcSize    int64
	SrcModTime time.Time
	SrcIsDir   bool
	DstSize    int64
	DstModTime time.Time
	DstIsDir   bool

	reply chan ConflictDecision
}

// Resolve answers the conflict. It must be called exactly once per request.
func (r ConflictRequest) Resolve(d ConflictDecision) {
	r.reply <- d
}

func newConflictRequest(jobID, src, dst string, srcInfo, dstInfo os.FileInfo) ConflictRequest {
	return ConflictRequest{
		JobID:      jobID,
		Source:     src,
		Dest:       dst,
		SrcSize:    srcInfo.Size(),
		SrcModTime: srcInfo.ModTime(),
		SrcIsDir:   srcInfo.IsDir(),
		DstSize:    dstInfo.Size(),
		DstModTime: dstInfo.ModTime(),
		DstIsDir:   dstInfo.IsDir(),
		reply:      make(chan ConflictDecision, 1),
	}
}

// askConflict runs the round trip with the consumer of Conflicts(). A
// cancelled job context unblocks the wait.
func (e *Engine) askConflict(ctx context.Context, req ConflictRequest) (ConflictDecision, error) {
	select {
	case e.conflicts <- req:
	case <-ctx.Done():
		return ConflictDecision{}, ctx.Err()
	}
	select {
	case d := <-req.reply:
		return d, nil
	case <-ctx.Done():
		return ConflictDecision{}, ctx.Err()
	}
}
