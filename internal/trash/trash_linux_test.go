package trash

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestMoveToTrashFreedesktopLayout(t *testing.T) {
	dataHome := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dataHome)

	workDir := t.TempDir()
	target := filepath.Join(workDir, "doomed.txt")
	if err := os.WriteFile(target, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	if !IsAvailable() {
		t.Fatal("trash should be available with a writable XDG_DATA_HOME")
	}
	if err := MoveToTrash(target); err != nil {
		t.Fatalf("MoveToTrash failed: %v", err)
	}

	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Error("original file still present")
	}

	trashed := filepath.Join(dataHome, "Trash", "files", "doomed.txt")
	if _, err := os.Stat(trashed); err != nil {
		t.Errorf("file not in trash: %v", err)
	}

	info, err := os.ReadFile(filepath.Join(dataHome, "Trash", "info", "doomed.txt.trashinfo"))
	if err != nil {
		t.Fatalf("trashinfo missing: %v", err)
	}
	if !strings.Contains(string(info), "[Trash Info]") || !strings.Contains(string(info), "Path=") {
		t.Errorf("malformed trashinfo:\n%s", info)
	}
}

func TestMoveToTrashNameCollision(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	workDir := t.TempDir()
	for i := 0; i < 2; i++ {
		target := filepath.Join(workDir, "same.txt")
		if err := os.WriteFile(target, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
		if err := MoveToTrash(target); err != nil {
			t.Fatalf("MoveToTrash round %d failed: %v", i, err)
		}
	}

	filesDir := filepath.Join(os.Getenv("XDG_DATA_HOME"), "Trash", "files")
	entries, err := os.ReadDir(filesDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("expected 2 trashed files, found %d", len(entries))
	}
}

func TestPermanentDelete(t *testing.T) {
	workDir := t.TempDir()
	tree := filepath.Join(workDir, "tree")
	if err := os.MkdirAll(filepath.Join(tree, "sub"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tree, "sub", "f.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := PermanentDelete(tree); err != nil {
		t.Fatalf("PermanentDelete failed: %v", err)
	}
	if _, err := os.Stat(tree); !os.IsNotExist(err) {
		t.Error("tree still exists")
	}
}
