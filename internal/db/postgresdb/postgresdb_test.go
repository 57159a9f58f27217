package postgresdb

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/patric-chuzhbe/userauth/internal/db/storage"
	"github.com/patric-chuzhbe/userauth/internal/user"
)

const migrationsDir = `../../../cmd/server/migrations`

// The test needs a live database, e.g.
// TEST_DATABASE_DSN="host=localhost user=postgres password=postgres dbname=userauth_test sslmode=disable".
func TestPostgresDB(t *testing.T) {
	databaseDSN := os.Getenv("TEST_DATABASE_DSN")
	if databaseDSN == "" {
		t.Skip("TEST_DATABASE_DSN is not set")
	}

	ctx := context.Background()

	db, err := New(ctx, databaseDSN, 5*time.Second, migrationsDir, WithDBPreReset(true))
	require.NoError(t, err)
	defer func() {
		require.NoError(t, db.Close())
	}()

	require.NoError(t, db.Ping(ctx))

	created, err := db.CreateUser(ctx, &user.User{Name: "John", Email: "a@b.com", Password: "hash"})
	require.NoError(t, err)

	_, err = db.CreateUser(ctx, &user.User{Name: "Jane", Email: "a@b.com", Password: "hash"})
	assert.ErrorIs(t, err, storage.ErrEmailAlreadyExists)

	avatar := "avatar.png"
	created.Avatar = &avatar
	require.NoError(t, db.SaveUser(ctx, created))

	stored, err := db.GetUserByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	require.NotNil(t, stored.Avatar)
	assert.Equal(t, avatar, *stored.Avatar)

	count, err := db.GetNumberOfUsers(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestNewClosesDatabaseWhenMigrationsFail(t *testing.T) {
	var opened *sql.DB
	originalOpenDatabase := openDatabase
	openDatabase = func(string) (*sql.DB, error) {
		var err error
		opened, err = sql.Open(sqliteshim.ShimName, ":memory:")
		return opened, err
	}
	defer func() { openDatabase = originalOpenDatabase }()

	_, err := New(context.Background(), "unused", time.Second, t.TempDir()+"/missing")
	require.Error(t, err)
	require.NotNil(t, opened)

	assert.ErrorContains(t, opened.Ping(), "database is closed")
}
