// Package trash moves files to the per-platform trash instead of deleting
// them. On platforms or filesystems where no trash exists, callers fall back
// to PermanentDelete.
package trash

import "os"

// MoveToTrash moves a file or directory into the system trash.
func MoveToTrash(path string) error {
	return moveToTrash(path)
}

// IsAvailable reports whether the trash can be used on this system.
func IsAvailable() bool {
	return isAvailable()
}

// PermanentDelete removes a file or directory tree without using the trash.
func PermanentDelete(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return os.RemoveAll(path)
	}
	return os.Remove(path)
}

// DisplayName is the platform name for the trash, for status messages.
func DisplayName() string {
	return displayName()
}
