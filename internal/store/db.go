// Package store persists pane state and settings in a local SQLite database.
// All access goes through a single worker goroutine fed by a request channel,
// so callers never share the connection.
package store

import (
	"database/sql"
	"log"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/paneworks/explorer/internal/debug"
	"github.com/paneworks/explorer/internal/listing"
)

type EventType int

const (
	FetchPanes EventType = iota
	SavePane
	FetchSettings
	SaveSetting
)

// PaneRecord is one pane's persisted state keyed by pane index.
type PaneRecord struct {
	PaneID int
	State  listing.PaneState
}

type Request struct {
	Op    EventType
	Pane  PaneRecord
	Key   string
	Value string
}

type Response struct {
	Op       EventType
	Panes    []PaneRecord
	Settings map[string]string
	Err      error
}

type DB struct {
	conn         *sql.DB
	RequestChan  chan Request
	ResponseChan chan Response
	workerDone   chan struct{}
}

func NewDB() *DB {
	return &DB{
		RequestChan:  make(chan Request, 10),
		ResponseChan: make(chan Response, 10),
		workerDone:   make(chan struct{}),
	}
}

// Open initializes the database connection and schema
func (d *DB) Open(dbPath string) error {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return err
	}

	// WAL mode allows simultaneous readers and writers
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return err
	}
	// Synchronous NORMAL is safe against app crashes, faster than FULL
	if _, err := db.Exec("PRAGMA synchronous=NORMAL;"); err != nil {
		return err
	}

	paneQuery := `
	CREATE TABLE IF NOT EXISTS panes (
		pane_id INTEGER PRIMARY KEY,
		path TEXT NOT NULL,
		sort_column TEXT NOT NULL DEFAULT 'name',
		sort_desc INTEGER NOT NULL DEFAULT 0,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := db.Exec(paneQuery); err != nil {
		return err
	}

	settingsQuery := `
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	if _, err := db.Exec(settingsQuery); err != nil {
		return err
	}

	d.conn = db
	return nil
}

func (d *DB) Start() {
	defer close(d.workerDone)
	for req := range d.RequestChan {
		switch req.Op {
		case FetchPanes:
			d.handleFetchPanes()
		case SavePane:
			d.handleSavePane(req.Pane)
		case FetchSettings:
			d.handleFetchSettings()
		case SaveSetting:
			d.handleSaveSetting(req.Key, req.Value)
		}
	}
}

func (d *DB) handleFetchPanes() {
	rows, err := d.conn.Query("SELECT pane_id, path, sort_column, sort_desc FROM panes ORDER BY pane_id ASC")
	if err != nil {
		d.ResponseChan <- Response{Op: FetchPanes, Err: err}
		return
	}
	defer rows.Close()

	var panes []PaneRecord
	for rows.Next() {
		var rec PaneRecord
		var sortCol string
		var sortDesc int
		if err := rows.Scan(&rec.PaneID, &rec.State.Path, &sortCol, &sortDesc); err != nil {
			continue
		}
		rec.State.SortColumn = listing.SortColumnFromString(sortCol)
		rec.State.SortDesc = sortDesc != 0
		panes = append(panes, rec)
	}

	d.ResponseChan <- Response{Op: FetchPanes, Panes: panes}
}

func (d *DB) handleSavePane(rec PaneRecord) {
	sortDesc := 0
	if rec.State.SortDesc {
		sortDesc = 1
	}
	_, err := d.conn.Exec(`
		INSERT INTO panes (pane_id, path, sort_column, sort_desc, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(pane_id) DO UPDATE SET
			path = excluded.path,
			sort_column = excluded.sort_column,
			sort_desc = excluded.sort_desc,
			updated_at = CURRENT_TIMESTAMP`,
		rec.PaneID, rec.State.Path, rec.State.SortColumn.String(), sortDesc)
	if err != nil {
		log.Printf("Store Error: %v", err)
		return
	}
	debug.Log(debug.STORE, "saved pane %d: %q", rec.PaneID, rec.State.Path)
}

func (d *DB) handleFetchSettings() {
	rows, err := d.conn.Query("SELECT key, value FROM settings")
	if err != nil {
		d.ResponseChan <- Response{Op: FetchSettings, Err: err}
		return
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err == nil {
			settings[key] = value
		}
	}

	d.ResponseChan <- Response{Op: FetchSettings, Settings: settings}
}

func (d *DB) handleSaveSetting(key, value string) {
	_, err := d.conn.Exec("INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)", key, value)
	if err != nil {
		log.Printf("Store Error saving setting: %v", err)
	}
}

// Close drains any queued requests, stops the worker, and closes the
// connection. Call only after Start is running, and only once.
func (d *DB) Close() {
	close(d.RequestChan)
	<-d.workerDone
	if d.conn != nil {
		d.conn.Close()
	}
}
