package fs

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFS(t *testing.T) {
	tmp := t.TempDir()
	lfs := LocalFS{}

	dir := filepath.Join(tmp, "subdir")
	assert.NoError(t, lfs.MkdirAll(dir, 0755))

	fpath := filepath.Join(dir, "test.txt")
	f, err := lfs.OpenFile(fpath, os.O_CREATE|os.O_RDWR, 0644)
	require.NoError(t, err)

	_, err = f.Write([]byte("hello"))
	assert.NoError(t, err)
	assert.NoError(t, f.Sync())

	info, err := f.Stat()
	assert.NoError(t, err)
	assert.Equal(t, int64(5), info.Size())
	assert.NoError(t, f.Close())

	entries, err := lfs.ReadDir(dir)
	assert.NoError(t, err)
	assert.Len(t, entries, 1)

	newPath := filepath.Join(dir, "renamed.txt")
	assert.NoError(t, lfs.Rename(fpath, newPath))

	assert.NoError(t, lfs.Remove(newPath))
	_, err = lfs.Stat(newPath)
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, lfs.RemoveAll(dir))
	_, err = lfs.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestWriteAtomic(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "out", "part.jsonl")

	n, err := WriteAtomic(nil, path, func(w io.Writer) error {
		_, err := w.Write([]byte("hello world\n"))
		return err
	})
	require.NoError(t, err)
	require.Equal(t, int64(12), n)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "hello world\n", string(data))

	// No temporaries left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestWriteAtomic_FailureLeavesNoFile(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "part.jsonl")

	ffs := NewFaultyFS(nil)
	ffs.AddRule("part.jsonl", Fault{FailAfterBytes: 4})

	_, err := WriteAtomic(ffs, path, func(w io.Writer) error {
		_, err := w.Write([]byte("way more than four bytes"))
		return err
	})
	require.ErrorIs(t, err, ErrInjected)

	// Neither the final path nor the temporary survives the failure.
	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestWriteAtomic_RenameFailure(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "final.bin")

	ffs := NewFaultyFS(nil)
	ffs.AddRule("final.bin", Fault{FailAfterBytes: -1, FailOnRename: true})

	_, err := WriteAtomic(ffs, path, func(w io.Writer) error {
		_, err := w.Write([]byte("data"))
		return err
	})
	require.ErrorIs(t, err, ErrInjected)

	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))
}
