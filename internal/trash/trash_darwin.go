//go:build darwin

package trash

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// macOS keeps the user trash at ~/.Trash with no metadata files. Name
// collisions get a timestamp suffix.

func trashRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".Trash")
}

func isAvailable() bool {
	root := trashRoot()
	if root == "" {
		return false
	}
	info, err := os.Stat(root)
	return err == nil && info.IsDir()
}

func moveToTrash(path string) error {
	root := trashRoot()
	if root == "" {
		return fmt.Errorf("trash directory not found")
	}

	baseName := filepath.Base(path)
	destPath := filepath.Join(root, baseName)
	if _, err := os.Lstat(destPath); err == nil {
		ext := filepath.Ext(baseName)
		stem := strings.TrimSuffix(baseName, ext)
		stamp := time.Now().Format("2006-01-02-150405")
		destPath = filepath.Join(root, fmt.Sprintf("%s %s%s", stem, stamp, ext))
	}

	// ~/.Trash lives on the same volume as $HOME; a rename failure here
	// means the source is on another volume and the caller should delete
	// permanently instead.
	if err := os.Rename(path, destPath); err != nil {
		return fmt.Errorf("move to trash: %w", err)
	}
	return nil
}

func displayName() string {
	return "Trash"
}
