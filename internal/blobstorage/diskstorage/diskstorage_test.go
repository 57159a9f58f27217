package diskstorage

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/userauth/internal/blobstorage"
)

func TestSaveOpenDelete(t *testing.T) {
	ctx := context.Background()
	directory := filepath.Join(t.TempDir(), "uploads")

	theStorage, err := New(directory)
	require.NoError(t, err)

	name, err := theStorage.Save(ctx, "avatar.png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(name, "-avatar.png"))
	assert.Equal(t, filepath.Join(directory, name), theStorage.Path(name))

	reader, err := theStorage.Open(ctx, name)
	require.NoError(t, err)
	content, err := io.ReadAll(reader)
	require.NoError(t, err)
	require.NoError(t, reader.Close())
	assert.Equal(t, "png-bytes", string(content))

	require.NoError(t, theStorage.Delete(ctx, name))

	_, err = os.Stat(theStorage.Path(name))
	assert.ErrorIs(t, err, fs.ErrNotExist)

	_, err = theStorage.Open(ctx, name)
	assert.ErrorIs(t, err, blobstorage.ErrNotFound)
}

func TestDeleteMissingFileReturnsNotFound(t *testing.T) {
	theStorage, err := New(t.TempDir())
	require.NoError(t, err)

	err = theStorage.Delete(context.Background(), "missing.png")
	assert.ErrorIs(t, err, blobstorage.ErrNotFound)
}

func TestRejectsPathTraversal(t *testing.T) {
	ctx := context.Background()
	theStorage, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = theStorage.Open(ctx, "../secret")
	assert.ErrorIs(t, err, blobstorage.ErrInvalidName)

	err = theStorage.Delete(ctx, "../secret")
	assert.ErrorIs(t, err, blobstorage.ErrInvalidName)
}
