package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFS(t *testing.T) {
	tmp := t.TempDir()
	lfs := LocalFS{}

	dir := filepath.Join(tmp, "segments")
	require.NoError(t, lfs.MkdirAll(dir, 0o755))

	fpath := filepath.Join(dir, "0000000000")
	f, err := lfs.OpenFile(fpath, os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)

	_, err = f.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, f.Sync())
	require.NoError(t, f.Close())

	info, err := lfs.Stat(fpath)
	require.NoError(t, err)
	assert.Equal(t, int64(5), info.Size())

	entries, err := lfs.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	renamed := filepath.Join(dir, "0000000001")
	require.NoError(t, lfs.Rename(fpath, renamed))

	require.NoError(t, lfs.Remove(renamed))
	_, err = lfs.Stat(renamed)
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, lfs.RemoveAll(dir))
	_, err = lfs.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestWriteFileAtomic(t *testing.T) {
	tmp := t.TempDir()
	name := filepath.Join(tmp, "index.bin")

	require.NoError(t, WriteFileAtomic(Default, name, []byte("first")))
	require.NoError(t, WriteFileAtomic(Default, name, []byte("second")))

	data, err := ReadFile(Default, name)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	_, err = os.Stat(name + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestFaultyFS(t *testing.T) {
	tmp := t.TempDir()

	t.Run("write limit", func(t *testing.T) {
		ffs := NewFaultyFS(nil)
		ffs.AddRule("limited", Fault{FailAfterBytes: 5})

		f, err := ffs.OpenFile(filepath.Join(tmp, "limited"), os.O_CREATE|os.O_RDWR, 0o644)
		require.NoError(t, err)
		defer f.Close()

		n, err := f.Write([]byte("hello"))
		require.NoError(t, err)
		assert.Equal(t, 5, n)

		_, err = f.Write([]byte("!"))
		assert.ErrorIs(t, err, ErrInjected)
	})

	t.Run("sync", func(t *testing.T) {
		ffs := NewFaultyFS(nil)
		ffs.AddRule("nosync", Fault{FailOnSync: true, FailAfterBytes: -1})

		err := WriteFileAtomic(ffs, filepath.Join(tmp, "nosync"), []byte("x"))
		assert.ErrorIs(t, err, ErrInjected)

		_, statErr := os.Stat(filepath.Join(tmp, "nosync"))
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("rename", func(t *testing.T) {
		ffs := NewFaultyFS(nil)
		ffs.AddRule("norename", Fault{FailOnRename: true, FailAfterBytes: -1})

		err := WriteFileAtomic(ffs, filepath.Join(tmp, "norename"), []byte("x"))
		assert.ErrorIs(t, err, ErrInjected)
		assert.Equal(t, 1, ffs.Count("rename"))
	})

	t.Run("unmatched paths pass through", func(t *testing.T) {
		ffs := NewFaultyFS(nil)
		ffs.AddRule("other", Fault{FailOnOpen: true})

		require.NoError(t, WriteFileAtomic(ffs, filepath.Join(tmp, "fine"), []byte("x")))
	})
}

func TestLock(t *testing.T) {
	name := filepath.Join(t.TempDir(), "LOCK")

	l, err := Default.Lock(name)
	require.NoError(t, err)

	_, err = Default.Lock(name)
	assert.ErrorIs(t, err, ErrLocked)

	require.NoError(t, l.Unlock())

	l2, err := Default.Lock(name)
	require.NoError(t, err)
	require.NoError(t, l2.Unlock())
}
