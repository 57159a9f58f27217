// Package diskstorage stores blobs as files in a local directory.
package diskstorage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/patric-chuzhbe/userauth/internal/blobstorage"
)

// DiskStorage keeps every blob as a file directly under directory.
type DiskStorage struct {
	directory string
}

// New creates the storage, making the directory if needed.
func New(directory string) (*DiskStorage, error) {
	if err := os.MkdirAll(directory, 0o750); err != nil {
		return nil, fmt.Errorf(
			"in internal/blobstorage/diskstorage/diskstorage.go/New(): error while `os.MkdirAll()` calling: %w",
			err,
		)
	}

	return &DiskStorage{directory: directory}, nil
}

// Path resolves the blob name to a file path.
func (s *DiskStorage) Path(name string) string {
	return filepath.Join(s.directory, name)
}

// Save writes content under a freshly generated name and returns that name.
func (s *DiskStorage) Save(ctx context.Context, originalName string, content io.Reader) (string, error) {
	name, err := blobstorage.GenerateName(originalName)
	if err != nil {
		return "", err
	}

	file, err := os.OpenFile(s.Path(name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return "", fmt.Errorf(
			"in internal/blobstorage/diskstorage/diskstorage.go/Save(): error while `os.OpenFile()` calling: %w",
			err,
		)
	}

	if _, err := io.Copy(file, content); err != nil {
		_ = file.Close()
		_ = os.Remove(file.Name())
		return "", fmt.Errorf(
			"in internal/blobstorage/diskstorage/diskstorage.go/Save(): error while `io.Copy()` calling: %w",
			err,
		)
	}

	if err := file.Close(); err != nil {
		_ = os.Remove(file.Name())
		return "", fmt.Errorf(
			"in internal/blobstorage/diskstorage/diskstorage.go/Save(): error while `file.Close()` calling: %w",
			err,
		)
	}

	return name, nil
}

// Open returns a reader for the named blob. The caller closes it.
func (s *DiskStorage) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := blobstorage.ValidateName(name); err != nil {
		return nil, err
	}

	file, err := os.Open(s.Path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, blobstorage.ErrNotFound
		}
		return nil, err
	}

	return file, nil
}

// Delete removes the named blob.
func (s *DiskStorage) Delete(ctx context.Context, name string) error {
	if err := blobstorage.ValidateName(name); err != nil {
		return err
	}

	err := os.Remove(s.Path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return blobstorage.ErrNotFound
	}

	return err
}
