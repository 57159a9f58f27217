// Package memorystorage provides a non-persistent user storage,
// used when neither a database DSN nor a storage file is configured.
package memorystorage

import (
	"github.com/patric-chuzhbe/userauth/internal/db/jsondb"
)

// MemoryStorage is a JSON storage with no file behind it.
type MemoryStorage struct {
	*jsondb.JSONDB
}

// New returns an empty storage.
func New() (*MemoryStorage, error) {
	return &MemoryStorage{
		JSONDB: &jsondb.JSONDB{
			Cache: jsondb.NewCache(),
		},
	}, nil
}

// Close is a no-op: there is nothing to flush.
func (theStorage *MemoryStorage) Close() error {
	return nil
}
