//go:build debug

// Package debug provides a centralized, categorized debug logging system.
// Build with -tags debug to enable logging.
package debug

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
)

// Enabled indicates whether debug logging is active
const Enabled = true

// Category represents a debug logging category
type Category string

const (
	APP    Category = "APP"    // Orchestration, pane lifecycle, navigation
	SCAN   Category = "SCAN"   // Directory enumeration
	ENRICH Category = "ENRICH" // Metadata enrichment batches
	WATCH  Category = "WATCH"  // Filesystem change notifications
	SEARCH Category = "SEARCH" // Recursive search traversal
	OPS    Category = "OPS"    // File operation jobs
	STORE  Category = "STORE"  // Persisted pane state / settings

	// Verbose subcategories (noisy, off by default)
	SCAN_ENTRY Category = "SCAN_ENTRY" // Per-entry scan processing
	OPS_CHUNK  Category = "OPS_CHUNK"  // Per-chunk copy progress
)

var (
	enabledCategories = map[Category]bool{
		APP:    true,
		SCAN:   true,
		ENRICH: true,
		WATCH:  true,
		SEARCH: true,
		OPS:    true,
		STORE:  true,

		SCAN_ENTRY: false,
		OPS_CHUNK:  false,
	}
	categoryMu sync.RWMutex

	logger = log.New(os.Stderr, "", log.Ltime|log.Lmicroseconds)
)

func init() {
	// Category overrides via environment.
	// Format: EXPLORER_DEBUG=APP,SCAN,OPS or EXPLORER_DEBUG=all or EXPLORER_DEBUG=none
	if env := os.Getenv("EXPLORER_DEBUG"); env != "" {
		categoryMu.Lock()
		defer categoryMu.Unlock()

		env = strings.ToUpper(env)
		switch env {
		case "ALL", "1", "TRUE", "ON":
			for cat := range enabledCategories {
				enabledCategories[cat] = true
			}
		case "NONE", "0", "FALSE", "OFF":
			for cat := range enabledCategories {
				enabledCategories[cat] = false
			}
		default:
			for cat := range enabledCategories {
				enabledCategories[cat] = false
			}
			for _, cat := range strings.Split(env, ",") {
				cat = strings.TrimSpace(cat)
				enabledCategories[Category(cat)] = true
			}
		}
	}
}

// Log logs a debug message for the specified category
func Log(cat Category, format string, args ...interface{}) {
	categoryMu.RLock()
	enabled := enabledCategories[cat]
	categoryMu.RUnlock()

	if !enabled {
		return
	}

	msg := fmt.Sprintf(format, args...)
	logger.Printf("[%s] %s", cat, msg)
}

// Enable enables a debug category
func Enable(cat Category) {
	categoryMu.Lock()
	enabledCategories[cat] = true
	categoryMu.Unlock()
}

// EnableAll enables every category, including the verbose ones
func EnableAll() {
	categoryMu.Lock()
	for cat := range enabledCategories {
		enabledCategories[cat] = true
	}
	categoryMu.Unlock()
}

// Disable disables a debug category
func Disable(cat Category) {
	categoryMu.Lock()
	enabledCategories[cat] = false
	categoryMu.Unlock()
}

// IsEnabled returns whether a category is enabled
func IsEnabled(cat Category) bool {
	categoryMu.RLock()
	defer categoryMu.RUnlock()
	return enabledCategories[cat]
}
