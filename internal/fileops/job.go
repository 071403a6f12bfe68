// Package fileops runs bulk copy, move, and delete jobs against the local
// filesystem. Each job processes its items strictly in order, reports
// progress over a channel, and pauses on name conflicts until the caller
// answers through the conflict channel.
package fileops

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// Kind selects the operation a job performs.
type Kind int

const (
	KindCopy Kind = iota
	KindMove
	KindDelete
)

func (k Kind) String() string {
	switch k {
	case KindCopy:
		return "copy"
	case KindMove:
		return "move"
	case KindDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// State is the lifecycle of a job.
type State int

const (
	StatePending State = iota
	StateRunning
	StateCompleted
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Job describes one submitted bulk operation. DestDir is empty for deletes.
type Job struct {
	ID      string
	Kind    Kind
	Sources []string
	DestDir string

	// Permanent skips the trash on delete jobs.
	Permanent bool
}

// Progress is a point-in-time report for a running job. BytesTotal is zero
// when the upfront size inventory was skipped or degraded; consumers then
// show item counts instead of byte ratios.
type Progress struct {
	JobID       string
	ItemIndex   int
	ItemCount   int
	BytesDone   int64
	BytesTotal  int64
	CurrentPath string
}

// Label renders a human status line for the report.
func (p Progress) Label() string {
	if p.BytesTotal > 0 {
		return fmt.Sprintf("%s of %s (%d/%d)",
			humanize.Bytes(uint64(p.BytesDone)),
			humanize.Bytes(uint64(p.BytesTotal)),
			p.ItemIndex+1, p.ItemCount)
	}
	return fmt.Sprintf("item %d of %d", p.ItemIndex+1, p.ItemCount)
}

// Result is the terminal report for a job.
type Result struct {
	JobID     string
	State     State
	Completed int
	Skipped   int
	Failed    int
	Err       error
}

func newJobID() string {
	return uuid.NewString()
}
