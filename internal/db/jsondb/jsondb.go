// Package jsondb provides a user storage kept in memory and persisted
// to a JSON file on Close.
package jsondb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/patric-chuzhbe/userauth/internal/db/storage"
	"github.com/patric-chuzhbe/userauth/internal/user"
)

// UserRecord is the on-disk form of a user. Unlike user.User it keeps the password hash.
type UserRecord struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Password  string    `json:"password"`
	Avatar    *string   `json:"avatar"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CacheStruct is the whole storage as written to the file.
type CacheStruct struct {
	Users     map[string]*UserRecord
	EmailToID map[string]string
}

// JSONDB keeps users in CacheStruct and writes them out on Close.
type JSONDB struct {
	fileName string
	mu       sync.RWMutex
	Cache    CacheStruct
}

// NewCache returns an empty cache.
func NewCache() CacheStruct {
	return CacheStruct{
		Users:     map[string]*UserRecord{},
		EmailToID: map[string]string{},
	}
}

func writeToJSONFile(fileName string, cache interface{}) error {
	jsonData, err := json.MarshalIndent(cache, "", "\t")
	if err != nil {
		return fmt.Errorf("error marshaling JSON: %w", err)
	}

	file, err := os.OpenFile(fileName, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0600)
	if err != nil {
		return fmt.Errorf("error opening file: %w", err)
	}
	defer file.Close()

	_, err = file.Write(jsonData)
	if err != nil {
		return fmt.Errorf("error writing to file: %w", err)
	}

	return nil
}

func parseJSONFile(fileName string, cache *CacheStruct) error {
	file, err := os.Open(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	return json.NewDecoder(file).Decode(cache)
}

// New loads the storage from fileName, creating an empty one if the file does not exist.
func New(fileName string) (*JSONDB, error) {
	db := &JSONDB{
		fileName: fileName,
		Cache:    NewCache(),
	}

	err := parseJSONFile(fileName, &db.Cache)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf(
				"in internal/db/jsondb/jsondb.go/New(): error while `parseJSONFile()` calling: %w",
				err,
			)
		}
		if err := writeToJSONFile(fileName, db.Cache); err != nil {
			return nil, fmt.Errorf(
				"in internal/db/jsondb/jsondb.go/New(): error while `writeToJSONFile()` calling: %w",
				err,
			)
		}
	}

	if db.Cache.Users == nil {
		db.Cache.Users = map[string]*UserRecord{}
	}
	if db.Cache.EmailToID == nil {
		db.Cache.EmailToID = map[string]string{}
	}

	return db, nil
}

func toRecord(usr *user.User) *UserRecord {
	return &UserRecord{
		ID:        usr.ID,
		Name:      usr.Name,
		Email:     usr.Email,
		Password:  usr.Password,
		Avatar:    copyString(usr.Avatar),
		CreatedAt: usr.CreatedAt,
		UpdatedAt: usr.UpdatedAt,
	}
}

func (r *UserRecord) toUser() *user.User {
	return &user.User{
		ID:        r.ID,
		Name:      r.Name,
		Email:     r.Email,
		Password:  r.Password,
		Avatar:    copyString(r.Avatar),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	c := *s

	return &c
}

// GetUserByEmail returns a copy of the user with email.
func (db *JSONDB) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	userID, found := db.Cache.EmailToID[email]
	if !found {
		return nil, storage.ErrUserNotFound
	}

	return db.Cache.Users[userID].toUser(), nil
}

// GetUserByID returns a copy of the user with userID.
func (db *JSONDB) GetUserByID(ctx context.Context, userID string) (*user.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	record, found := db.Cache.Users[userID]
	if !found {
		return nil, storage.ErrUserNotFound
	}

	return record.toUser(), nil
}

// CreateUser stores usr, assigning an ID and timestamps.
func (db *JSONDB) CreateUser(ctx context.Context, usr *user.User) (*user.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.Cache.EmailToID[usr.Email]; exists {
		return nil, storage.ErrEmailAlreadyExists
	}

	if usr.ID == "" {
		usr.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	usr.CreatedAt = now
	usr.UpdatedAt = now

	db.Cache.Users[usr.ID] = toRecord(usr)
	db.Cache.EmailToID[usr.Email] = usr.ID

	return usr, nil
}

// SaveUser overwrites the stored user with the same ID.
func (db *JSONDB) SaveUser(ctx context.Context, usr *user.User) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	existing, found := db.Cache.Users[usr.ID]
	if !found {
		return storage.ErrUserNotFound
	}

	if existing.Email != usr.Email {
		if _, taken := db.Cache.EmailToID[usr.Email]; taken {
			return storage.ErrEmailAlreadyExists
		}
		delete(db.Cache.EmailToID, existing.Email)
		db.Cache.EmailToID[usr.Email] = usr.ID
	}

	usr.UpdatedAt = time.Now().UTC()
	db.Cache.Users[usr.ID] = toRecord(usr)

	return nil
}

// GetNumberOfUsers returns how many users are stored.
func (db *JSONDB) GetNumberOfUsers(ctx context.Context) (int64, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return int64(len(db.Cache.Users)), nil
}

// Ping always succeeds.
func (db *JSONDB) Ping(ctx context.Context) error {
	return nil
}

// Close flushes the cache to the JSON file.
func (db *JSONDB) Close() error {
	if db.fileName == "" {
		return errors.New("in internal/db/jsondb/jsondb.go/Close(): the storage has no file to flush to")
	}

	db.mu.RLock()
	defer db.mu.RUnlock()

	return writeToJSONFile(db.fileName, db.Cache)
}
