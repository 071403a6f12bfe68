package fs

import (
	"errors"
	iofs "io/fs"
	"os"
)

// Error taxonomy for listing and traversal. Per-item failures are swallowed
// at the item level; these sentinels cover whole-operation setup failures.
var (
	// ErrNotFound means the path vanished before the operation started.
	// Callers typically fall back to navigating to the parent.
	ErrNotFound = errors.New("path not found")

	// ErrAccessDenied means the path exists but is unreadable.
	ErrAccessDenied = errors.New("access denied")
)

// ClassifyError maps an OS error onto the taxonomy, wrapping so callers can
// use errors.Is against the sentinels while keeping the original detail.
func ClassifyError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, iofs.ErrNotExist) || os.IsNotExist(err):
		return errors.Join(ErrNotFound, err)
	case errors.Is(err, iofs.ErrPermission) || os.IsPermission(err):
		return errors.Join(ErrAccessDenied, err)
	default:
		return err
	}
}
