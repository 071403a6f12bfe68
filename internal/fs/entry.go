// Package fs implements the directory listing pipeline: a fast scanner that
// enumerates entries without per-item stat calls, and an enricher that lazily
// fills metadata for the rows a pane actually shows.
package fs

import (
	"path/filepath"
	"strings"
	"time"
)

// Kind classifies a directory entry.
type Kind int

const (
	KindFile Kind = iota
	KindDir
	KindSymlink
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindDir:
		return "directory"
	case KindSymlink:
		return "symlink"
	case KindOther:
		return "other"
	default:
		return "file"
	}
}

// StatState tracks whether an entry's metadata has been filled.
type StatState int

const (
	StatPending     StatState = iota // not yet enriched
	StatReady                        // Size/ModTime/IconClass valid
	StatUnavailable                  // stat failed (e.g. deleted mid-enrich)
)

// Entry is one row of a directory listing. Identity is Parent+Name.
// Only the enrichment step mutates Size, ModTime, IconClass and Stat;
// everything else is fixed at scan time.
type Entry struct {
	Name   string
	Parent string
	Kind   Kind

	Size      int64
	ModTime   time.Time
	IconClass string
	Stat      StatState
}

// Path returns the full path of the entry.
func (e Entry) Path() string {
	return filepath.Join(e.Parent, e.Name)
}

// IsDir reports whether the entry is a directory.
func (e Entry) IsDir() bool {
	return e.Kind == KindDir
}

// Coarse icon classes used before full resolution, and as the only classes
// for directories above the coarse-icon threshold.
const (
	IconFolder = "folder"
	IconFile   = "file"
)

var iconClassByExt = map[string]string{
	".txt": "document", ".md": "document", ".pdf": "document", ".doc": "document",
	".docx": "document", ".odt": "document", ".rtf": "document",
	".xls": "spreadsheet", ".xlsx": "spreadsheet", ".ods": "spreadsheet", ".csv": "spreadsheet",
	".png": "image", ".jpg": "image", ".jpeg": "image", ".gif": "image",
	".bmp": "image", ".svg": "image", ".webp": "image", ".heic": "image",
	".mp3": "audio", ".flac": "audio", ".ogg": "audio", ".wav": "audio", ".m4a": "audio",
	".mp4": "video", ".mkv": "video", ".avi": "video", ".mov": "video", ".webm": "video",
	".zip": "archive", ".tar": "archive", ".gz": "archive", ".xz": "archive",
	".bz2": "archive", ".7z": "archive", ".rar": "archive",
	".go": "code", ".py": "code", ".js": "code", ".ts": "code", ".c": "code",
	".h": "code", ".cpp": "code", ".rs": "code", ".java": "code", ".sh": "code",
}

// IconClassFor returns the icon class for an entry. With coarse=true only the
// folder/file distinction is made, which is what large directories get.
func IconClassFor(name string, kind Kind, coarse bool) string {
	if kind == KindDir {
		return IconFolder
	}
	if coarse {
		return IconFile
	}
	if cls, ok := iconClassByExt[strings.ToLower(filepath.Ext(name))]; ok {
		return cls
	}
	return IconFile
}
