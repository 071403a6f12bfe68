package app

import (
	"path/filepath"
	"runtime"
	"strings"
)

// ExpandPath expands and normalizes a typed path, handling:
// - ~ for the home directory
// - relative paths (../, ./) against current
// - absolute paths
// - Windows drive letters (C:, D:, etc.)
func ExpandPath(home, current, input string) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return current
	}

	if strings.HasPrefix(input, "~") {
		if input == "~" {
			return home
		}
		if strings.HasPrefix(input, "~/") || strings.HasPrefix(input, "~\\") {
			return filepath.Clean(filepath.Join(home, input[2:]))
		}
	}

	if isAbsolutePath(input) {
		return filepath.Clean(input)
	}

	return filepath.Clean(filepath.Join(current, input))
}

// isAbsolutePath checks both Unix and Windows forms.
func isAbsolutePath(path string) bool {
	if len(path) == 0 {
		return false
	}
	if path[0] == '/' {
		return true
	}
	if runtime.GOOS == "windows" {
		// Drive letter paths: C:\, D:\, C:/, etc.
		if len(path) >= 2 && isLetter(path[0]) && path[1] == ':' {
			return true
		}
		// UNC paths
		if strings.HasPrefix(path, `\\`) {
			return true
		}
	}
	return false
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
