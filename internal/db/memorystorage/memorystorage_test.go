package memorystorage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/userauth/internal/db/storage"
	"github.com/patric-chuzhbe/userauth/internal/user"
)

func TestMemoryStorage(t *testing.T) {
	ctx := context.Background()

	theStorage, err := New()
	require.NoError(t, err)

	var _ storage.Storage = theStorage

	created, err := theStorage.CreateUser(ctx, &user.User{Name: "John", Email: "a@b.com", Password: "hash"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	found, err := theStorage.GetUserByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	// Mutating the returned copy must not touch the stored record.
	avatar := "leaked.png"
	found.Avatar = &avatar
	stored, err := theStorage.GetUserByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.Avatar)

	assert.NoError(t, theStorage.Ping(ctx))
	assert.NoError(t, theStorage.Close())
}
