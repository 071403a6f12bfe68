package fs

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func waitResult(t *testing.T, e *Enricher) StatResult {
	t.Helper()
	select {
	case res := <-e.Results():
		return res
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for enrichment result")
		return StatResult{}
	}
}

func TestEnricherFillsMetadata(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "photo.jpg")
	if err := os.WriteFile(path, []byte("12345"), 0644); err != nil {
		t.Fatal(err)
	}

	e := NewEnricher(0)
	e.Request(7, false, []Entry{{Name: "photo.jpg", Parent: tmpDir, Kind: KindFile}})

	res := waitResult(t, e)
	if res.Gen != 7 {
		t.Errorf("gen = %d, want 7", res.Gen)
	}
	if res.Name != "photo.jpg" || res.Parent != tmpDir {
		t.Errorf("result identity mismatch: %q in %q", res.Name, res.Parent)
	}
	if res.Stat != StatReady {
		t.Fatalf("stat state = %v, want ready", res.Stat)
	}
	if res.Size != 5 {
		t.Errorf("size = %d, want 5", res.Size)
	}
	if res.IconClass != "image" {
		t.Errorf("icon class = %q, want image", res.IconClass)
	}
	if res.ModTime.IsZero() {
		t.Error("mod time not filled")
	}
}

func TestEnricherCoarseIcons(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "photo.jpg")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	e := NewEnricher(0)
	e.Request(1, true, []Entry{{Name: "photo.jpg", Parent: tmpDir, Kind: KindFile}})

	res := waitResult(t, e)
	if res.IconClass != IconFile {
		t.Errorf("coarse icon class = %q, want %q", res.IconClass, IconFile)
	}
}

func TestEnricherVanishedFile(t *testing.T) {
	tmpDir := t.TempDir()

	e := NewEnricher(0)
	e.Request(1, false, []Entry{{Name: "gone.txt", Parent: tmpDir, Kind: KindFile}})

	res := waitResult(t, e)
	if res.Stat != StatUnavailable {
		t.Errorf("stat state = %v, want unavailable", res.Stat)
	}
}

func TestEnricherSkipsReadyEntries(t *testing.T) {
	tmpDir := t.TempDir()
	for _, name := range []string{"a.txt", "b.txt"} {
		if err := os.WriteFile(filepath.Join(tmpDir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	e := NewEnricher(0)
	e.Request(1, false, []Entry{
		{Name: "a.txt", Parent: tmpDir, Kind: KindFile, Stat: StatReady},
		{Name: "b.txt", Parent: tmpDir, Kind: KindFile},
	})

	res := waitResult(t, e)
	if res.Name != "b.txt" {
		t.Errorf("expected only the pending entry, got %q", res.Name)
	}

	select {
	case extra := <-e.Results():
		t.Errorf("unexpected extra result for %q", extra.Name)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestEnricherBatchLimit(t *testing.T) {
	tmpDir := t.TempDir()
	entries := make([]Entry, 0, 5)
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		if err := os.WriteFile(filepath.Join(tmpDir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
		entries = append(entries, Entry{Name: name, Parent: tmpDir, Kind: KindFile})
	}

	e := NewEnricher(3)
	e.Request(1, false, entries)

	got := 0
	deadline := time.After(2 * time.Second)
	for got < 3 {
		select {
		case <-e.Results():
			got++
		case <-deadline:
			t.Fatalf("got %d results before timeout, want 3", got)
		}
	}

	select {
	case extra := <-e.Results():
		t.Errorf("batch limit exceeded: extra result for %q", extra.Name)
	case <-time.After(100 * time.Millisecond):
	}
}
