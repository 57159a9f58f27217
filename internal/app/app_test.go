package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/userauth/internal/config"
	"github.com/patric-chuzhbe/userauth/internal/db/jsondb"
	"github.com/patric-chuzhbe/userauth/internal/models"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	return &config.Config{
		RunAddr:              "127.0.0.1:0",
		FilesBaseURL:         "http://localhost:8080/files",
		LogLevel:             "debug",
		JWTSecretKey:         "app-test-secret-0123456789",
		JWTExpiresIn:         time.Hour,
		BcryptCost:           4,
		UploadDirectory:      filepath.Join(t.TempDir(), "uploads"),
		MaxAvatarSize:        1 << 20,
		RemoverQueueCapacity: 10,
		RemoverFlushInterval: 10 * time.Millisecond,
		ReadHeaderTimeout:    time.Second,
	}
}

func TestStorageSelection(t *testing.T) {
	testCases := []struct {
		name     string
		cfg      config.Config
		expected int
	}{
		{name: "postgres", cfg: config.Config{DatabaseDSN: "postgres://", DBFileName: "db.json"}, expected: models.StorageTypePostgresql},
		{name: "file", cfg: config.Config{DBFileName: "db.json"}, expected: models.StorageTypeFile},
		{name: "memory", cfg: config.Config{}, expected: models.StorageTypeMemory},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert.Equal(t, testCase.expected, getAvailableStorageType(&testCase.cfg))
		})
	}

	assert.Equal(t, models.BlobStorageTypeDisk, getAvailableBlobStorageType(&config.Config{}))
	assert.Equal(t, models.BlobStorageTypeS3, getAvailableBlobStorageType(&config.Config{S3Bucket: "avatars"}))
}

func TestAppRegisterAndLogin(t *testing.T) {
	cfg := testConfig(t)

	theApp, err := NewWithConfig(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		theApp.stopBlobRemover()
		<-theApp.blobRemover.Done()
		require.NoError(t, theApp.db.Close())
	})

	_, err = os.Stat(cfg.UploadDirectory)
	require.NoError(t, err, "upload directory is created on start")

	srv := httptest.NewServer(theApp.Handler())
	defer srv.Close()

	resp, err := resty.New().R().
		SetHeader("Content-Type", "application/json").
		SetBody(`{"name":"John","email":"a@b.com","password":"secret"}`).
		Post(srv.URL + "/users")
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode())

	var login models.LoginResponse
	resp, err = resty.New().R().
		SetHeader("Content-Type", "application/json").
		SetBody(`{"email":"a@b.com","password":"secret"}`).
		SetResult(&login).
		Post(srv.URL + "/sessions")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.NotEmpty(t, login.Token)

	resp, err = resty.New().R().
		SetHeader("Authorization", "Bearer "+login.Token).
		SetFileReader("avatar", "one.png", strings.NewReader("one")).
		Patch(srv.URL + "/users/avatar")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode(), resp.String())

	resp, err = resty.New().R().
		SetHeader("Authorization", "Bearer "+login.Token).
		SetFileReader("avatar", "two.png", strings.NewReader("two")).
		Patch(srv.URL + "/users/avatar")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode(), resp.String())

	// The old avatar is removed in the background.
	assert.Eventually(t, func() bool {
		entries, err := os.ReadDir(cfg.UploadDirectory)
		return err == nil && len(entries) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestServeShutsDownAndPersists(t *testing.T) {
	cfg := testConfig(t)
	cfg.DBFileName = filepath.Join(t.TempDir(), "users.json")

	theApp, err := NewWithConfig(cfg)
	require.NoError(t, err)

	srv := httptest.NewServer(theApp.Handler())
	resp, err := resty.New().R().
		SetHeader("Content-Type", "application/json").
		SetBody(`{"name":"John","email":"a@b.com","password":"secret"}`).
		Post(srv.URL + "/users")
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode())
	srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- theApp.Serve(ctx)
	}()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}

	reopened, err := jsondb.New(cfg.DBFileName)
	require.NoError(t, err)
	count, err := reopened.GetNumberOfUsers(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}
