package fileops

import (
	"context"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charlievieth/fastwalk"
)

const (
	dirPermission  = 0o755
	filePermission = 0o644
)

func pathExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// uniqueDest returns a destination path in dir that does not collide with an
// existing entry: "name - Copy.ext", then "name - Copy (2).ext" and so on.
func uniqueDest(dir, name string) string {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	candidate := filepath.Join(dir, stem+" - Copy"+ext)
	if !pathExists(candidate) {
		return candidate
	}
	for i := 2; ; i++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s - Copy (%d)%s", stem, i, ext))
		if !pathExists(candidate) {
			return candidate
		}
	}
}

// isWithin reports whether path is dir or lies under dir.
func isWithin(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// copyFile copies src to dst in chunks, checking for cancellation between
// chunks. On error or cancellation the partial dst is removed and src is
// left untouched.
func (e *Engine) copyFile(ctx context.Context, src, dst string, onWrite func(int64)) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	info, err := srcFile.Stat()
	if err != nil {
		return err
	}

	dstFile, err := os.Create(dst)
	if err != nil {
		return err
	}

	buf := make([]byte, e.chunkSize)
	for {
		if err := ctx.Err(); err != nil {
			dstFile.Close()
			os.Remove(dst)
			return err
		}
		n, rerr := srcFile.Read(buf)
		if n > 0 {
			if _, werr := dstFile.Write(buf[:n]); werr != nil {
				dstFile.Close()
				os.Remove(dst)
				return werr
			}
			if onWrite != nil {
				onWrite(int64(n))
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			dstFile.Close()
			os.Remove(dst)
			return rerr
		}
	}

	if err := dstFile.Close(); err != nil {
		os.Remove(dst)
		return err
	}
	return os.Chmod(dst, info.Mode())
}

// copyDir copies a directory tree. The walk builds the full item list first,
// then directories are created shallow-to-deep and files copied in order so
// cancellation leaves a cleanly removable partial tree.
func (e *Engine) copyDir(ctx context.Context, src, dst string, onWrite func(int64)) error {
	type copyItem struct {
		srcPath string
		dstPath string
		isDir   bool
		mode    iofs.FileMode
	}
	var items []copyItem
	var itemsMu sync.Mutex

	conf := &fastwalk.Config{Follow: false}
	srcLen := len(src)

	err := fastwalk.Walk(conf, src, func(fullPath string, d iofs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		relPath := fullPath[srcLen:]
		if len(relPath) > 0 && (relPath[0] == '/' || relPath[0] == '\\') {
			relPath = relPath[1:]
		}
		if relPath == "" {
			return nil
		}
		info, err := fastwalk.StatDirEntry(fullPath, d)
		if err != nil {
			return nil
		}
		itemsMu.Lock()
		items = append(items, copyItem{
			srcPath: fullPath,
			dstPath: filepath.Join(dst, relPath),
			isDir:   info.IsDir(),
			mode:    info.Mode(),
		})
		itemsMu.Unlock()
		return nil
	})
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dst, dirPermission); err != nil {
		return err
	}

	// Parents before children.
	sort.Slice(items, func(i, j int) bool {
		if items[i].isDir != items[j].isDir {
			return items[i].isDir
		}
		return len(items[i].dstPath) < len(items[j].dstPath)
	})

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			os.RemoveAll(dst)
			return err
		}
		if item.isDir {
			if err := os.MkdirAll(item.dstPath, item.mode); err != nil {
				os.RemoveAll(dst)
				return err
			}
		} else {
			if err := e.copyFile(ctx, item.srcPath, item.dstPath, onWrite); err != nil {
				os.RemoveAll(dst)
				return err
			}
		}
	}
	return nil
}

// inventory walks the sources adding up file sizes for byte-accurate
// progress. It gives up past the configured file or time limit and returns
// zero, which degrades the job to count-based progress.
func (e *Engine) inventory(ctx context.Context, sources []string) int64 {
	deadline := time.Now().Add(e.sizeScanTime)
	var total int64
	var files int

	for _, src := range sources {
		info, err := os.Lstat(src)
		if err != nil {
			continue
		}
		if !info.IsDir() {
			total += info.Size()
			files++
			continue
		}

		var mu sync.Mutex
		overBudget := false
		conf := &fastwalk.Config{Follow: false}
		fastwalk.Walk(conf, src, func(fullPath string, d iofs.DirEntry, walkErr error) error {
			if walkErr != nil || d.IsDir() {
				return nil
			}
			fi, err := fastwalk.StatDirEntry(fullPath, d)
			if err != nil {
				return nil
			}
			mu.Lock()
			total += fi.Size()
			files++
			over := files > e.sizeScanFiles || time.Now().After(deadline)
			mu.Unlock()
			if over || ctx.Err() != nil {
				mu.Lock()
				overBudget = true
				mu.Unlock()
				return filepath.SkipAll
			}
			return nil
		})
		if overBudget {
			return 0
		}
	}

	if files > e.sizeScanFiles || time.Now().After(deadline) {
		return 0
	}
	return total
}
