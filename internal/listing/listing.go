// Package listing owns per-pane listing state: the directory snapshot, sort
// and filter configuration, adaptive fast/full mode selection, and the glue
// between scanner, enricher and change watcher.
package listing

import (
	"github.com/paneworks/explorer/internal/fs"
)

// SortColumn selects the active sort key. Directories always sort before
// files regardless of column.
type SortColumn int

const (
	SortByName SortColumn = iota
	SortBySize
	SortByDate
	SortByType
)

func (c SortColumn) String() string {
	switch c {
	case SortBySize:
		return "size"
	case SortByDate:
		return "date"
	case SortByType:
		return "type"
	default:
		return "name"
	}
}

// SortColumnFromString parses a persisted sort column name.
func SortColumnFromString(s string) SortColumn {
	switch s {
	case "size":
		return SortBySize
	case "date":
		return SortByDate
	case "type":
		return SortByType
	default:
		return SortByName
	}
}

// Mode is the listing state for the current path.
type Mode int

const (
	ModeIdle     Mode = iota
	ModeScanning      // enumeration in progress
	ModeFast          // huge directory: cheap enumeration only, no watcher
	ModeEnriching     // mid-size: visible-row enrichment, coarse icons, no watcher
	ModeFull          // full enrichment and change watcher armed
)

func (m Mode) String() string {
	switch m {
	case ModeScanning:
		return "scanning"
	case ModeFast:
		return "fast"
	case ModeEnriching:
		return "enriching"
	case ModeFull:
		return "full"
	default:
		return "idle"
	}
}

// Snapshot is an immutable view of a pane's listing for the UI to render.
type Snapshot struct {
	Path    string
	Gen     uint64
	Mode    Mode
	Entries []fs.Entry // filtered + sorted
	Total   int        // unfiltered entry count
	Err     error      // last scan failure, nil when healthy

	SortColumn SortColumn
	SortDesc   bool
	Filter     string // raw filter text, "" when cleared

	CanBack    bool
	CanForward bool
}

// PaneState is the externally persisted slice of a pane's state. The core
// accepts it at initialization and produces it at teardown; storage format
// is the settings collaborator's business.
type PaneState struct {
	Path       string
	SortColumn SortColumn
	SortDesc   bool
}
