package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"Staticcheck":["SA1000","SA4006"]}`), 0o600))
	t.Setenv("STATICLINT_CONFIG", path)

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{"SA1000", "SA4006"}, cfg.Staticcheck)
}

func TestSelectStaticcheck(t *testing.T) {
	selected := selectStaticcheck([]string{"SA1000", "NOPE"})

	require.Len(t, selected, 1)
	assert.Equal(t, "SA1000", selected[0].Name)
}
