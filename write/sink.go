package write

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/cholmes/geopartition/internal/fs"
)

// Sink accepts output files. Commit must be atomic: a file either appears
// complete at its final path or not at all.
type Sink interface {
	// Exists reports whether the relative path is already taken.
	Exists(path string) (bool, error)

	// Commit writes one file atomically and reports the byte count.
	Commit(ctx context.Context, path string, write func(w io.Writer) error) (int64, error)
}

// LocalSink writes files under a root directory, each through a temp path
// renamed into place on completion.
type LocalSink struct {
	root string
	fsys fs.FileSystem
}

// LocalSinkOption configures a LocalSink.
type LocalSinkOption func(*LocalSink)

// WithSinkFileSystem overrides the filesystem (fault-injection tests).
func WithSinkFileSystem(fsys fs.FileSystem) LocalSinkOption {
	return func(s *LocalSink) { s.fsys = fsys }
}

// NewLocalSink creates a sink rooted at dir. The directory is created on
// first commit, not here.
func NewLocalSink(dir string, opts ...LocalSinkOption) *LocalSink {
	s := &LocalSink{root: dir, fsys: fs.Default}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the sink's root directory.
func (s *LocalSink) Root() string { return s.root }

func (s *LocalSink) abs(path string) string {
	return filepath.Join(s.root, filepath.FromSlash(path))
}

func (s *LocalSink) Exists(path string) (bool, error) {
	_, err := s.fsys.Stat(s.abs(path))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func (s *LocalSink) Commit(ctx context.Context, path string, write func(w io.Writer) error) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return fs.WriteAtomic(s.fsys, s.abs(path), write)
}
