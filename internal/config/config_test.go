package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef-secret"

const testJSON = `{
	"server_address": ":3000",
	"files_base_url": "http://json-config.com/files",
	"file_storage_path": "json_storage.json",
	"database_dsn": "json-dsn",
	"jwt_secret_key": "json-secret-key-0123456789",
	"jwt_expires_in": "2h",
	"remover_flush_interval": "3s"
}`

func writeTempJSON(t *testing.T, content string) string {
	t.Helper()
	file, err := os.CreateTemp(t.TempDir(), "config*.json")
	require.NoError(t, err)
	_, err = file.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, file.Close())
	return file.Name()
}

func TestApplyDefaults(t *testing.T) {
	values := Config{
		RunAddr: ":9999",
	}

	applyDefaults(&values, defaultConfig)

	assert.Equal(t, ":9999", values.RunAddr)
	assert.Equal(t, "http://localhost:8080/files", values.FilesBaseURL)
	assert.Equal(t, "info", values.LogLevel)
	assert.Equal(t, 24*time.Hour, values.JWTExpiresIn)
	assert.Equal(t, "tmp/uploads", values.UploadDirectory)
	assert.EqualValues(t, 5<<20, values.MaxAvatarSize)
	assert.Equal(t, 100, values.RemoverQueueCapacity)
	assert.Equal(t, 10, values.BcryptCost)
}

func TestConfigDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", testSecret)

	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.RunAddr)
	assert.Equal(t, 10*time.Second, cfg.DBConnectionTimeout)
	assert.Equal(t, testSecret, cfg.JWTSecretKey)
	assert.False(t, cfg.UseS3())
}

func TestConfigRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "")

	_, err := New(WithDisableFlagsParsing(true))
	assert.Error(t, err)
}

func TestConfigRejectsShortSecret(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "short")

	_, err := New(WithDisableFlagsParsing(true))
	assert.Error(t, err)
}

func TestConfigRejectsUnknownLogLevel(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", testSecret)
	t.Setenv("LOG_LEVEL", "verbose")

	_, err := New(WithDisableFlagsParsing(true))
	assert.Error(t, err)
}

func TestConfigRejectsBadTrustedSubnet(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", testSecret)
	t.Setenv("TRUSTED_SUBNET", "not-a-cidr")

	_, err := New(WithDisableFlagsParsing(true))
	assert.Error(t, err)
}

func TestConfigPriorityJSONOnly(t *testing.T) {
	jsonPath := writeTempJSON(t, testJSON)
	t.Setenv("CONFIG", jsonPath)

	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.RunAddr)
	assert.Equal(t, "http://json-config.com/files", cfg.FilesBaseURL)
	assert.Equal(t, "json_storage.json", cfg.DBFileName)
	assert.Equal(t, "json-dsn", cfg.DatabaseDSN)
	assert.Equal(t, "json-secret-key-0123456789", cfg.JWTSecretKey)
	assert.Equal(t, 2*time.Hour, cfg.JWTExpiresIn)
	assert.Equal(t, 3*time.Second, cfg.RemoverFlushInterval)
}

func TestConfigPriorityJSONPlusEnv(t *testing.T) {
	jsonPath := writeTempJSON(t, testJSON)
	t.Setenv("CONFIG", jsonPath)
	t.Setenv("SERVER_ADDRESS", ":4000")
	t.Setenv("JWT_EXPIRES_IN", "15m")

	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, ":4000", cfg.RunAddr) // env overrides json
	assert.Equal(t, 15*time.Minute, cfg.JWTExpiresIn)
	assert.Equal(t, "json-dsn", cfg.DatabaseDSN) // from JSON
}

func TestConfigPriorityAllSources(t *testing.T) {
	jsonPath := writeTempJSON(t, testJSON)
	t.Setenv("CONFIG", jsonPath)
	t.Setenv("SERVER_ADDRESS", ":4000")
	t.Setenv("FILES_BASE_URL", "http://env.com/files")

	oldArgs := os.Args
	t.Cleanup(func() { os.Args = oldArgs })
	os.Args = []string{
		"testbin",
		"-a", ":6000",
		"-b", "http://cli.com/files",
	}

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, ":6000", cfg.RunAddr) // CLI > ENV > JSON
	assert.Equal(t, "http://cli.com/files", cfg.FilesBaseURL)
	assert.Equal(t, "json-dsn", cfg.DatabaseDSN) // from JSON
}

func TestConfigFileFromFlag(t *testing.T) {
	jsonPath := writeTempJSON(t, testJSON)

	oldArgs := os.Args
	t.Cleanup(func() { os.Args = oldArgs })
	os.Args = []string{"testbin", "-c", jsonPath}

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.RunAddr)
	assert.Equal(t, jsonPath, cfg.ConfigFile)
}

func TestConfigEnvOnly(t *testing.T) {
	t.Setenv("SERVER_ADDRESS", ":7000")
	t.Setenv("FILES_BASE_URL", "http://envonly.com/files")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("JWT_SECRET_KEY", testSecret)
	t.Setenv("S3_BUCKET", "avatars")

	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.RunAddr)
	assert.Equal(t, "http://envonly.com/files", cfg.FilesBaseURL)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.UseS3())
}
