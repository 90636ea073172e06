package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/grievance-desk/internal/model"
)

func TestExecute_Help(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, execute([]string{"--help"}, &out))

	assert.Contains(t, out.String(), "Usage: grievance-desk")
	assert.Contains(t, out.String(), "logout")
	assert.Contains(t, out.String(), "--config")
}

func TestExecute_UnknownCommand(t *testing.T) {
	var out bytes.Buffer
	err := execute([]string{"frobnicate"}, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown command "frobnicate"`)
	assert.Contains(t, out.String(), "Commands:")
}

func TestExecute_ExtraArguments(t *testing.T) {
	var out bytes.Buffer
	err := execute([]string{"login", "extra"}, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected arguments")
}

func TestOpenCache_CreatesDirectory(t *testing.T) {
	dir := t.TempDir()

	cache, err := openCache(dir + "/nested/cache.db")
	require.NoError(t, err)
	require.NoError(t, cache.Close())

	require.NoError(t, purgeCache(dir+"/nested/cache.db"))
}

func TestExecute_InitWritesConfigOnce(t *testing.T) {
	t.Setenv("GRIEVANCE_API_BASE_URL", "https://desk.example.com/api")
	path := filepath.Join(t.TempDir(), "config.yaml")

	var out bytes.Buffer
	require.NoError(t, execute([]string{"init", "--config", path}, &out))

	cfg, err := model.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "https://desk.example.com/api", cfg.API.BaseURL)

	err = execute([]string{"init", "-c", path}, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}
