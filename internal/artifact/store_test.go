package artifact

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return store
}

func TestStore_PutAndRead(t *testing.T) {
	store := newTestStore(t)

	name, err := store.Put("hello.txt", strings.NewReader("hello world"))
	require.NoError(t, err)
	assert.Equal(t, "hello.txt", name)

	content, err := store.ReadString("hello.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello world", content)
}

func TestStore_PutBytes(t *testing.T) {
	store := newTestStore(t)

	_, err := store.PutBytes("data.txt", []byte("some bytes"))
	require.NoError(t, err)

	content, err := store.ReadString("data.txt")
	require.NoError(t, err)
	assert.Equal(t, "some bytes", content)
}

func TestStore_PutFile(t *testing.T) {
	store := newTestStore(t)

	src := filepath.Join(t.TempDir(), "source.mp3")
	require.NoError(t, os.WriteFile(src, []byte("audio bytes"), 0o644))

	name, err := store.PutFile(src, "copied.mp3")
	require.NoError(t, err)
	assert.Equal(t, "copied.mp3", name)

	content, err := store.ReadString("copied.mp3")
	require.NoError(t, err)
	assert.Equal(t, "audio bytes", content)
}

func TestStore_InvalidNames(t *testing.T) {
	store := newTestStore(t)

	names := []string{"", ".", "..", "a/b.txt", `a\b.txt`, "../escape.txt"}
	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			_, err := store.PutBytes(name, []byte("x"))
			assert.ErrorIs(t, err, ErrInvalidName)

			_, err = store.ReadString(name)
			assert.ErrorIs(t, err, ErrInvalidName)
		})
	}
}

func TestStore_ReadMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.ReadString("nope.txt")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Open("nope.txt")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_Exists(t *testing.T) {
	store := newTestStore(t)

	assert.False(t, store.Exists("a.txt"))

	_, err := store.PutBytes("a.txt", []byte("x"))
	require.NoError(t, err)

	assert.True(t, store.Exists("a.txt"))
	assert.False(t, store.Exists("../a.txt"))
}

func TestStore_Remove(t *testing.T) {
	store := newTestStore(t)

	_, err := store.PutBytes("a.txt", []byte("x"))
	require.NoError(t, err)

	require.NoError(t, store.Remove("a.txt"))
	assert.False(t, store.Exists("a.txt"))

	assert.ErrorIs(t, store.Remove("a.txt"), ErrNotFound)
}

func TestStore_RemoveAllIgnoresMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.PutBytes("keep.txt", []byte("x"))
	require.NoError(t, err)
	_, err = store.PutBytes("drop.txt", []byte("x"))
	require.NoError(t, err)

	store.RemoveAll([]string{"drop.txt", "missing.txt"})

	assert.True(t, store.Exists("keep.txt"))
	assert.False(t, store.Exists("drop.txt"))
}

func TestStore_ListSortedByName(t *testing.T) {
	store := newTestStore(t)

	for _, name := range []string{"c.txt", "a.txt", "b.txt"} {
		_, err := store.PutBytes(name, []byte("x"))
		require.NoError(t, err)
	}

	infos, err := store.List()
	require.NoError(t, err)
	require.Len(t, infos, 3)

	assert.Equal(t, "a.txt", infos[0].Name)
	assert.Equal(t, "b.txt", infos[1].Name)
	assert.Equal(t, "c.txt", infos[2].Name)
	assert.Equal(t, int64(1), infos[0].Size)
	assert.False(t, infos[0].LastModified.IsZero())
}

func TestStore_OverwriteReplacesContent(t *testing.T) {
	store := newTestStore(t)

	_, err := store.PutBytes("a.txt", []byte("first"))
	require.NoError(t, err)
	_, err = store.PutBytes("a.txt", []byte("second"))
	require.NoError(t, err)

	content, err := store.ReadString("a.txt")
	require.NoError(t, err)
	assert.Equal(t, "second", content)
}
