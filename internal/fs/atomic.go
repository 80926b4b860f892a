package fs

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
)

var tmpSeq atomic.Uint64

// TempName returns a sibling temporary path for the given final path. The
// name is unique within the process; cross-process uniqueness comes from the
// pid component.
func TempName(path string) string {
	dir, base := filepath.Split(path)
	return filepath.Join(dir, fmt.Sprintf(".%s.tmp.%d.%d", base, os.Getpid(), tmpSeq.Add(1)))
}

// WriteAtomic writes a file by streaming into a sibling temporary path and
// renaming it into place after a successful sync. The final path never holds
// a partial file: on any error (or cancellation by the caller returning one)
// the temporary is removed and the final path is untouched.
//
// Returns the number of bytes written.
func WriteAtomic(fsys FileSystem, path string, write func(w io.Writer) error) (int64, error) {
	if fsys == nil {
		fsys = Default
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := fsys.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	tmp := TempName(path)
	f, err := fsys.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create temp %s: %w", tmp, err)
	}

	cw := &countingWriter{w: f}
	if err := write(cw); err != nil {
		_ = f.Close()
		_ = fsys.Remove(tmp)
		return 0, err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = fsys.Remove(tmp)
		return 0, fmt.Errorf("sync %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		_ = fsys.Remove(tmp)
		return 0, fmt.Errorf("close %s: %w", tmp, err)
	}
	if err := fsys.Rename(tmp, path); err != nil {
		_ = fsys.Remove(tmp)
		return 0, fmt.Errorf("rename %s: %w", path, err)
	}
	return cw.n, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
