package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestImageStore_SaveAndRemove(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "static")
	store, err := NewImageStore(dir, "/static/", zap.NewNop())
	require.NoError(t, err)

	img, err := store.Save("abc", "png", []byte("data"))
	require.NoError(t, err)
	require.Equal(t, "/static/abc.png", img.URL)

	content, err := os.ReadFile(img.Path)
	require.NoError(t, err)
	require.Equal(t, "data", string(content))

	store.Remove(img)
	_, err = os.Stat(img.Path)
	require.True(t, os.IsNotExist(err))
}

func TestImageStore_SaveDoesNotOverwrite(t *testing.T) {
	store, err := NewImageStore(t.TempDir(), "static", zap.NewNop())
	require.NoError(t, err)

	_, err = store.Save("abc", "png", []byte("first"))
	require.NoError(t, err)

	_, err = store.Save("abc", "png", []byte("second"))
	require.Error(t, err)
}

func TestImageStore_RejectsPathTraversal(t *testing.T) {
	store, err := NewImageStore(t.TempDir(), "/static", zap.NewNop())
	require.NoError(t, err)

	_, err = store.Save("../evil", "png", []byte("x"))
	require.Error(t, err)
}

func TestImageStore_RemoveMissingIsNoop(t *testing.T) {
	store, err := NewImageStore(t.TempDir(), "/static", zap.NewNop())
	require.NoError(t, err)

	store.Remove(StoredImage{Path: filepath.Join(store.Dir(), "missing.png")})
	store.Remove(StoredImage{})
}
