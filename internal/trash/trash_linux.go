//go:build linux

package trash

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// freedesktop.org trash spec: files go under $XDG_DATA_HOME/Trash/files and
// each gets a matching .trashinfo record under Trash/info.

func trashRoot() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "Trash")
}

func isAvailable() bool {
	root := trashRoot()
	if root == "" {
		return false
	}
	if err := os.MkdirAll(filepath.Join(root, "files"), 0700); err != nil {
		return false
	}
	if err := os.MkdirAll(filepath.Join(root, "info"), 0700); err != nil {
		return false
	}
	return true
}

func moveToTrash(path string) error {
	root := trashRoot()
	if root == "" {
		return fmt.Errorf("trash directory not found")
	}
	filesDir := filepath.Join(root, "files")
	infoDir := filepath.Join(root, "info")
	if err := os.MkdirAll(filesDir, 0700); err != nil {
		return fmt.Errorf("create trash files dir: %w", err)
	}
	if err := os.MkdirAll(infoDir, 0700); err != nil {
		return fmt.Errorf("create trash info dir: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	// Pick a name that is free in the trash, numbering on collision.
	baseName := filepath.Base(absPath)
	destName := baseName
	destPath := filepath.Join(filesDir, destName)
	for counter := 1; ; counter++ {
		if _, err := os.Lstat(destPath); os.IsNotExist(err) {
			break
		}
		ext := filepath.Ext(baseName)
		stem := strings.TrimSuffix(baseName, ext)
		destName = fmt.Sprintf("%s.%d%s", stem, counter, ext)
		destPath = filepath.Join(filesDir, destName)
	}

	infoPath := filepath.Join(infoDir, destName+".trashinfo")
	record := fmt.Sprintf("[Trash Info]\nPath=%s\nDeletionDate=%s\n",
		url.PathEscape(absPath),
		time.Now().Format("2006-01-02T15:04:05"))
	if err := os.WriteFile(infoPath, []byte(record), 0600); err != nil {
		return fmt.Errorf("write trashinfo: %w", err)
	}

	if err := os.Rename(absPath, destPath); err != nil {
		os.Remove(infoPath)
		return fmt.Errorf("move to trash: %w", err)
	}
	return nil
}

func displayName() string {
	return "Trash"
}
