// Package blobstorage holds what the blob store implementations share:
// generated blob names and the errors they report.
package blobstorage

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

const randomPrefixSize = 10

var (
	// ErrNotFound is returned when the named blob does not exist.
	ErrNotFound = errors.New("blob not found")

	// ErrInvalidName is returned for names that could escape the storage root.
	ErrInvalidName = errors.New("invalid blob name")
)

// GenerateName builds a unique blob name of the form `<random hex>-<base name>`.
func GenerateName(originalName string) (string, error) {
	prefix := make([]byte, randomPrefixSize)
	if _, err := rand.Read(prefix); err != nil {
		return "", fmt.Errorf(
			"in internal/blobstorage/blobstorage.go/GenerateName(): error while `rand.Read()` calling: %w",
			err,
		)
	}

	base := filepath.Base(filepath.Clean("/" + strings.ReplaceAll(originalName, `\`, "/")))
	base = strings.ReplaceAll(base, " ", "_")
	if base == "/" || base == "." {
		base = "blob"
	}

	return hex.EncodeToString(prefix) + "-" + base, nil
}

// ValidateName rejects empty names and names with path elements.
func ValidateName(name string) error {
	if name == "" ||
		name == "." ||
		name == ".." ||
		strings.ContainsAny(name, `/\`) {
		return ErrInvalidName
	}

	return nil
}
