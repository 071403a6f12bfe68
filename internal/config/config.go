// Package config holds all user-configurable settings for the explorer core.
// A single Config is constructed at start-up and passed by reference to the
// components that need it; there is no ambient global state.
package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// PaneCounts are the supported pane layouts.
var PaneCounts = []int{4, 6, 8}

// DefaultPaneCount is the mid-size layout used when none is requested.
const DefaultPaneCount = 6

// Config holds all settings loaded from config.json.
type Config struct {
	Listing  ListingConfig  `json:"listing"`
	Watcher  WatcherConfig  `json:"watcher"`
	Search   SearchConfig   `json:"search"`
	FileOps  FileOpsConfig  `json:"fileOps"`
	Behavior BehaviorConfig `json:"behavior"`
}

// ListingConfig controls the fast/full listing pipeline.
type ListingConfig struct {
	// HighWaterEntries is the entry count at or above which a directory
	// stays in fast mode: no enrichment, no change watcher.
	HighWaterEntries int `json:"highWaterEntries"`
	// CoarseIconEntries is the entry count at or above which enrichment
	// runs but only coarse icon classes are assigned.
	CoarseIconEntries int `json:"coarseIconEntries"`
	// ScanBatchSize is how many entries the scanner yields per batch.
	ScanBatchSize int `json:"scanBatchSize"`
	// EnrichBatchLimit caps how many rows one enrichment cycle stats.
	EnrichBatchLimit int `json:"enrichBatchLimit"`
	// HistoryLimit bounds per-pane back/forward history.
	HistoryLimit int `json:"historyLimit"`
}

// WatcherConfig controls filesystem change notifications.
type WatcherConfig struct {
	DebounceMs int `json:"debounceMs"`
}

// SearchConfig controls recursive search.
type SearchConfig struct {
	MaxResults int `json:"maxResults"`
}

// FileOpsConfig controls the file operation engine.
type FileOpsConfig struct {
	// CopyChunkSize is the buffer size for chunked file copies. Cancellation
	// is observed between chunks.
	CopyChunkSize int `json:"copyChunkSize"`
	// SizeScanFileLimit bounds the pre-operation size inventory; beyond it
	// progress degrades to item counting.
	SizeScanFileLimit int `json:"sizeScanFileLimit"`
	// SizeScanTimeMs bounds the wall-clock time of the size inventory.
	SizeScanTimeMs int `json:"sizeScanTimeMs"`
}

// BehaviorConfig holds behavior settings.
type BehaviorConfig struct {
	ShowDotfiles    bool `json:"showDotfiles"`
	ConfirmDelete   bool `json:"confirmDelete"`
	RestoreLastPath bool `json:"restoreLastPath"`
}

// Manager handles loading, saving, and accessing configuration.
type Manager struct {
	mu       sync.RWMutex
	config   *Config
	path     string
	parseErr error
}

// NewManager creates a new configuration manager with defaults.
func NewManager() *Manager {
	return &Manager{config: DefaultConfig()}
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listing: ListingConfig{
			HighWaterEntries:  3000,
			CoarseIconEntries: 1200,
			ScanBatchSize:     400,
			EnrichBatchLimit:  256,
			HistoryLimit:      100,
		},
		Watcher: WatcherConfig{
			DebounceMs: 600,
		},
		Search: SearchConfig{
			MaxResults: 50000,
		},
		FileOps: FileOpsConfig{
			CopyChunkSize:     1024 * 1024,
			SizeScanFileLimit: 6000,
			SizeScanTimeMs:    1200,
		},
		Behavior: BehaviorConfig{
			ShowDotfiles:    true,
			ConfirmDelete:   true,
			RestoreLastPath: true,
		},
	}
}

// ConfigPath returns the config file path: ~/.config/explorer/config.json
func ConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "explorer", "config.json")
}

// Load reads the configuration from the config file.
// If the file doesn't exist, creates it with defaults.
// If parsing fails, stores the error and keeps defaults.
func (m *Manager) Load() error {
	return m.LoadFrom(ConfigPath())
}

// LoadFrom reads the configuration from an explicit path.
func (m *Manager) LoadFrom(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.path = path
	m.parseErr = nil

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.Printf("Config: failed to create directory for %s: %v", path, err)
		return err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		m.config = DefaultConfig()
		if saveErr := m.saveUnlocked(); saveErr != nil {
			log.Printf("Config: failed to save default config: %v", saveErr)
			return saveErr
		}
		return nil
	}
	if err != nil {
		log.Printf("Config: failed to read %s: %v", path, err)
		return err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		// Keep defaults, remember the error for diagnostics.
		m.parseErr = err
		m.config = DefaultConfig()
		log.Printf("Config: parse error in %s: %v (using defaults)", path, err)
		return nil
	}
	cfg.normalize()
	m.config = cfg
	return nil
}

// Get returns the current configuration. The returned pointer must be
// treated as read-only by callers.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// ParseError returns the stored parse error, if loading failed.
func (m *Manager) ParseError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.parseErr
}

// Save writes the current configuration to disk.
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveUnlocked()
}

func (m *Manager) saveUnlocked() error {
	data, err := json.MarshalIndent(m.config, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.path, data, 0o644)
}

// normalize clamps nonsensical values back to defaults so a hand-edited
// config file cannot wedge the pipeline.
func (c *Config) normalize() {
	def := DefaultConfig()
	if c.Listing.HighWaterEntries <= 0 {
		c.Listing.HighWaterEntries = def.Listing.HighWaterEntries
	}
	if c.Listing.CoarseIconEntries <= 0 {
		c.Listing.CoarseIconEntries = def.Listing.CoarseIconEntries
	}
	if c.Listing.CoarseIconEntries > c.Listing.HighWaterEntries {
		c.Listing.CoarseIconEntries = c.Listing.HighWaterEntries
	}
	if c.Listing.ScanBatchSize <= 0 {
		c.Listing.ScanBatchSize = def.Listing.ScanBatchSize
	}
	if c.Listing.EnrichBatchLimit <= 0 {
		c.Listing.EnrichBatchLimit = def.Listing.EnrichBatchLimit
	}
	if c.Listing.HistoryLimit <= 0 {
		c.Listing.HistoryLimit = def.Listing.HistoryLimit
	}
	if c.Watcher.DebounceMs <= 0 {
		c.Watcher.DebounceMs = def.Watcher.DebounceMs
	}
	if c.Search.MaxResults <= 0 {
		c.Search.MaxResults = def.Search.MaxResults
	}
	if c.FileOps.CopyChunkSize <= 0 {
		c.FileOps.CopyChunkSize = def.FileOps.CopyChunkSize
	}
	if c.FileOps.SizeScanFileLimit <= 0 {
		c.FileOps.SizeScanFileLimit = def.FileOps.SizeScanFileLimit
	}
	if c.FileOps.SizeScanTimeMs <= 0 {
		c.FileOps.SizeScanTimeMs = def.FileOps.SizeScanTimeMs
	}
}

// ValidPaneCount reports whether n is a supported pane layout.
func ValidPaneCount(n int) bool {
	for _, c := range PaneCounts {
		if n == c {
			return true
		}
	}
	return false
}
