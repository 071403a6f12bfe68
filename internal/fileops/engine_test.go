package fileops

import (
	"bytes"
	"errors"
	iofs "io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/paneworks/explorer/internal/config"
)

func testEngine() *Engine {
	cfg := config.DefaultConfig()
	cfg.FileOps.CopyChunkSize = 1024
	return NewEngine(cfg)
}

func writeFile(t *testing.T, path string, content []byte) {
	t.Helper()
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}
}

func readFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return data
}

func waitResult(t *testing.T, e *Engine) Result {
	t.Helper()
	select {
	case res := <-e.Results():
		return res
	case <-time.After(5 * time.Second):
		t.Fatal("job never finished")
		return Result{}
	}
}

func waitConflict(t *testing.T, e *Engine) ConflictRequest {
	t.Helper()
	select {
	case req := <-e.Conflicts():
		return req
	case <-time.After(5 * time.Second):
		t.Fatal("expected a conflict prompt")
		return ConflictRequest{}
	}
}

func TestCopyJob(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()
	writeFile(t, filepath.Join(srcDir, "a.txt"), []byte("alpha"))
	writeFile(t, filepath.Join(srcDir, "b.txt"), []byte("beta"))

	e := testEngine()
	_, err := e.Submit(Job{
		Kind:    KindCopy,
		Sources: []string{filepath.Join(srcDir, "a.txt"), filepath.Join(srcDir, "b.txt")},
		DestDir: dstDir,
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	res := waitResult(t, e)
	if res.State != StateCompleted || res.Completed != 2 {
		t.Fatalf("result = %+v, want 2 completed", res)
	}
	if got := readFile(t, filepath.Join(dstDir, "a.txt")); !bytes.Equal(got, []byte("alpha")) {
		t.Errorf("copied content mismatch: %q", got)
	}
	// Copy leaves sources in place.
	if _, err := os.Stat(filepath.Join(srcDir, "a.txt")); err != nil {
		t.Error("source removed by copy")
	}
}

func TestCopyDirectoryTree(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()
	tree := filepath.Join(srcDir, "proj")
	if err := os.MkdirAll(filepath.Join(tree, "sub"), 0755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(tree, "top.txt"), []byte("top"))
	writeFile(t, filepath.Join(tree, "sub", "deep.txt"), []byte("deep"))

	e := testEngine()
	if _, err := e.Submit(Job{Kind: KindCopy, Sources: []string{tree}, DestDir: dstDir}); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	res := waitResult(t, e)
	if res.State != StateCompleted {
		t.Fatalf("result = %+v", res)
	}
	if got := readFile(t, filepath.Join(dstDir, "proj", "sub", "deep.txt")); !bytes.Equal(got, []byte("deep")) {
		t.Errorf("nested content mismatch: %q", got)
	}
}

func TestConflictOverwrite(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()
	writeFile(t, filepath.Join(srcDir, "a.txt"), []byte("new"))
	writeFile(t, filepath.Join(dstDir, "a.txt"), []byte("old"))

	e := testEngine()
	if _, err := e.Submit(Job{Kind: KindCopy, Sources: []string{filepath.Join(srcDir, "a.txt")}, DestDir: dstDir}); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	req := waitConflict(t, e)
	if req.SrcSize != 3 || req.DstSize != 3 {
		t.Errorf("conflict metadata: src=%d dst=%d", req.SrcSize, req.DstSize)
	}
	req.Resolve(ConflictDecision{Action: ActionOverwrite})

	res := waitResult(t, e)
	if res.State != StateCompleted || res.Completed != 1 {
		t.Fatalf("result = %+v", res)
	}
	if got := readFile(t, filepath.Join(dstDir, "a.txt")); !bytes.Equal(got, []byte("new")) {
		t.Errorf("overwrite left %q", got)
	}
}

func TestConflictSkip(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()
	writeFile(t, filepath.Join(srcDir, "a.txt"), []byte("new"))
	writeFile(t, filepath.Join(dstDir, "a.txt"), []byte("old"))

	e := testEngine()
	if _, err := e.Submit(Job{Kind: KindCopy, Sources: []string{filepath.Join(srcDir, "a.txt")}, DestDir: dstDir}); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	waitConflict(t, e).Resolve(ConflictDecision{Action: ActionSkip})

	res := waitResult(t, e)
	if res.State != StateCompleted || res.Skipped != 1 || res.Completed != 0 {
		t.Fatalf("result = %+v, want 1 skipped", res)
	}
	if got := readFile(t, filepath.Join(dstDir, "a.txt")); !bytes.Equal(got, []byte("old")) {
		t.Errorf("skip modified destination: %q", got)
	}
}

func TestConflictKeepBoth(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()
	writeFile(t, filepath.Join(srcDir, "a.txt"), []byte("new"))
	writeFile(t, filepath.Join(dstDir, "a.txt"), []byte("old"))

	e := testEngine()
	if _, err := e.Submit(Job{Kind: KindCopy, Sources: []string{filepath.Join(srcDir, "a.txt")}, DestDir: dstDir}); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	waitConflict(t, e).Resolve(ConflictDecision{Action: ActionKeepBoth})

	res := waitResult(t, e)
	if res.State != StateCompleted || res.Completed != 1 {
		t.Fatalf("result = %+v", res)
	}
	if got := readFile(t, filepath.Join(dstDir, "a.txt")); !bytes.Equal(got, []byte("old")) {
		t.Errorf("keep-both modified original destination: %q", got)
	}
	if got := readFile(t, filepath.Join(dstDir, "a - Copy.txt")); !bytes.Equal(got, []byte("new")) {
		t.Errorf("keep-both copy content: %q", got)
	}
}

func TestConflictApplyToAll(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()
	var sources []string
	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		writeFile(t, filepath.Join(srcDir, name), []byte("new"))
		writeFile(t, filepath.Join(dstDir, name), []byte("old"))
		sources = append(sources, filepath.Join(srcDir, name))
	}

	e := testEngine()
	if _, err := e.Submit(Job{Kind: KindCopy, Sources: sources, DestDir: dstDir}); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	// One answer covers the remaining collisions.
	waitConflict(t, e).Resolve(ConflictDecision{Action: ActionSkip, ApplyToAll: true})

	res := waitResult(t, e)
	if res.Skipped != 3 {
		t.Fatalf("result = %+v, want all 3 skipped", res)
	}

	select {
	case req := <-e.Conflicts():
		t.Errorf("standing answer ignored, prompted again for %s", req.Dest)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestUniqueDestNumbering(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), nil)
	writeFile(t, filepath.Join(dir, "a - Copy.txt"), nil)

	got := uniqueDest(dir, "a.txt")
	want := filepath.Join(dir, "a - Copy (2).txt")
	if got != want {
		t.Errorf("uniqueDest = %q, want %q", got, want)
	}
}

func TestCancelStopsRemainingItems(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()
	writeFile(t, filepath.Join(srcDir, "first.txt"), []byte("one"))
	writeFile(t, filepath.Join(srcDir, "second.txt"), []byte("two"))
	writeFile(t, filepath.Join(srcDir, "third.txt"), []byte("three"))
	// The collision blocks the job at item two, a stable point to cancel.
	writeFile(t, filepath.Join(dstDir, "second.txt"), []byte("old"))

	e := testEngine()
	id, err := e.Submit(Job{
		Kind: KindCopy,
		Sources: []string{
			filepath.Join(srcDir, "first.txt"),
			filepath.Join(srcDir, "second.txt"),
			filepath.Join(srcDir, "third.txt"),
		},
		DestDir: dstDir,
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	<-e.Conflicts() // job is now parked on item two
	e.Cancel(id)

	res := waitResult(t, e)
	if res.State != StateCancelled {
		t.Fatalf("state = %v, want cancelled", res.State)
	}
	if res.Completed != 1 {
		t.Errorf("completed = %d, want the one item finished before cancel", res.Completed)
	}
	// Completed items stay; unprocessed ones were never started.
	if _, err := os.Stat(filepath.Join(dstDir, "first.txt")); err != nil {
		t.Error("cancellation rolled back a completed item")
	}
	if _, err := os.Stat(filepath.Join(dstDir, "third.txt")); err == nil {
		t.Error("cancelled job still processed a later item")
	}
	if got := readFile(t, filepath.Join(dstDir, "second.txt")); !bytes.Equal(got, []byte("old")) {
		t.Errorf("cancelled item modified destination: %q", got)
	}
}

func TestCancelMidCopyRemovesPartialFile(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()
	payload := bytes.Repeat([]byte("x"), 1<<20)
	writeFile(t, filepath.Join(srcDir, "big.bin"), payload)

	// One byte per chunk keeps the job busy long enough to interrupt.
	cfg := config.DefaultConfig()
	cfg.FileOps.CopyChunkSize = 1
	e := NewEngine(cfg)

	id, err := e.Submit(Job{Kind: KindCopy, Sources: []string{filepath.Join(srcDir, "big.bin")}, DestDir: dstDir})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	// Cancel after the first chunks have landed, while most are outstanding.
	deadline := time.After(5 * time.Second)
	for started := false; !started; {
		select {
		case p := <-e.Progress():
			started = p.BytesDone > 0
		case <-deadline:
			t.Fatal("no byte progress reported")
		}
	}
	e.Cancel(id)

	res := waitResult(t, e)
	if res.State != StateCancelled {
		t.Fatalf("state = %v, want cancelled", res.State)
	}
	if _, err := os.Stat(filepath.Join(dstDir, "big.bin")); !os.IsNotExist(err) {
		t.Error("partial destination left behind after cancellation")
	}
	if got := readFile(t, filepath.Join(srcDir, "big.bin")); !bytes.Equal(got, payload) {
		t.Error("source modified by a cancelled copy")
	}
}

func TestUnsearchableDestDirFailsItem(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}
	srcDir := t.TempDir()
	dstDir := t.TempDir()
	writeFile(t, filepath.Join(srcDir, "a.txt"), []byte("alpha"))

	// The destination stats as a directory but its entries cannot be probed
	// for collisions.
	if err := os.Chmod(dstDir, 0o666); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chmod(dstDir, 0o755) })

	e := testEngine()
	if _, err := e.Submit(Job{Kind: KindCopy, Sources: []string{filepath.Join(srcDir, "a.txt")}, DestDir: dstDir}); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	res := waitResult(t, e)
	if res.State != StateFailed || res.Failed != 1 {
		t.Fatalf("result = %+v, want one failed item", res)
	}
	if !errors.Is(res.Err, iofs.ErrPermission) {
		t.Errorf("err = %v, want a permission error", res.Err)
	}
}

func TestMoveSameDevice(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()
	writeFile(t, filepath.Join(srcDir, "a.txt"), []byte("payload"))

	e := testEngine()
	if _, err := e.Submit(Job{Kind: KindMove, Sources: []string{filepath.Join(srcDir, "a.txt")}, DestDir: dstDir}); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	res := waitResult(t, e)
	if res.State != StateCompleted || res.Completed != 1 {
		t.Fatalf("result = %+v", res)
	}
	if _, err := os.Stat(filepath.Join(srcDir, "a.txt")); !os.IsNotExist(err) {
		t.Error("move left the source behind")
	}
	if got := readFile(t, filepath.Join(dstDir, "a.txt")); !bytes.Equal(got, []byte("payload")) {
		t.Errorf("moved content mismatch: %q", got)
	}
}

func TestMoveCrossDeviceFallsBackToCopy(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()
	writeFile(t, filepath.Join(srcDir, "a.txt"), []byte("payload"))

	e := testEngine()
	e.renameHook = func(oldpath, newpath string) error {
		return errors.New("invalid cross-device link")
	}

	if _, err := e.Submit(Job{Kind: KindMove, Sources: []string{filepath.Join(srcDir, "a.txt")}, DestDir: dstDir}); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	res := waitResult(t, e)
	if res.State != StateCompleted || res.Completed != 1 {
		t.Fatalf("result = %+v", res)
	}
	if _, err := os.Stat(filepath.Join(srcDir, "a.txt")); !os.IsNotExist(err) {
		t.Error("cross-device move left the source behind")
	}
	if got := readFile(t, filepath.Join(dstDir, "a.txt")); !bytes.Equal(got, []byte("payload")) {
		t.Errorf("moved content mismatch: %q", got)
	}
}

func TestMoveFailureKeepsSource(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not bind as root")
	}

	srcDir := t.TempDir()
	dstDir := t.TempDir()
	writeFile(t, filepath.Join(srcDir, "a.txt"), []byte("payload"))

	e := testEngine()
	e.renameHook = func(oldpath, newpath string) error {
		return errors.New("invalid cross-device link")
	}

	// Read-only destination makes the fallback copy fail after submission
	// passed its accessibility check.
	if err := os.Chmod(dstDir, 0555); err != nil {
		t.Fatal(err)
	}
	defer os.Chmod(dstDir, 0755)

	if _, err := e.Submit(Job{Kind: KindMove, Sources: []string{filepath.Join(srcDir, "a.txt")}, DestDir: dstDir}); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	res := waitResult(t, e)
	if res.State != StateFailed || res.Failed != 1 {
		t.Fatalf("result = %+v, want a failed item", res)
	}
	if got := readFile(t, filepath.Join(srcDir, "a.txt")); !bytes.Equal(got, []byte("payload")) {
		t.Error("failed move lost the source")
	}
}

func TestDeletePermanent(t *testing.T) {
	srcDir := t.TempDir()
	target := filepath.Join(srcDir, "doomed.txt")
	writeFile(t, target, []byte("x"))

	e := testEngine()
	if _, err := e.Submit(Job{Kind: KindDelete, Sources: []string{target}, Permanent: true}); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	res := waitResult(t, e)
	if res.State != StateCompleted || res.Completed != 1 {
		t.Fatalf("result = %+v", res)
	}
	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Error("target still exists")
	}
}

func TestSubmitValidation(t *testing.T) {
	srcDir := t.TempDir()
	writeFile(t, filepath.Join(srcDir, "a.txt"), nil)

	e := testEngine()

	_, err := e.Submit(Job{
		Kind:    KindCopy,
		Sources: []string{filepath.Join(srcDir, "a.txt")},
		DestDir: filepath.Join(srcDir, "missing"),
	})
	if !errors.Is(err, ErrDestInaccessible) {
		t.Errorf("missing dest: got %v", err)
	}

	sub := filepath.Join(srcDir, "sub")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	_, err = e.Submit(Job{Kind: KindCopy, Sources: []string{srcDir}, DestDir: sub})
	if !errors.Is(err, ErrSourceContainsDest) {
		t.Errorf("dir into itself: got %v", err)
	}

	if _, err := e.Submit(Job{Kind: KindDelete}); err == nil {
		t.Error("empty source list accepted")
	}
}

func TestProgressReportsBytes(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()
	payload := bytes.Repeat([]byte("z"), 8192)
	writeFile(t, filepath.Join(srcDir, "big.bin"), payload)

	e := testEngine()
	if _, err := e.Submit(Job{Kind: KindCopy, Sources: []string{filepath.Join(srcDir, "big.bin")}, DestDir: dstDir}); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	var sawBytes bool
	deadline := time.After(5 * time.Second)
	for !sawBytes {
		select {
		case p := <-e.Progress():
			if p.BytesTotal == int64(len(payload)) && p.BytesDone > 0 {
				sawBytes = true
				if p.Label() == "" {
					t.Error("empty progress label")
				}
			}
		case res := <-e.Results():
			if res.State != StateCompleted {
				t.Fatalf("result = %+v", res)
			}
			if !sawBytes {
				t.Log("job finished before a byte-level report was observed")
			}
			return
		case <-deadline:
			t.Fatal("no progress observed")
		}
	}
}
