package main

import (
	"bytes"
	"context"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCommands(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("FILECACHE_LOG_LEVEL", "none")
	t.Setenv("FILECACHE_CACHE_DIR", dir)

	_, err := run(t, "set", "a", `{"x":1}`)
	require.NoError(t, err)
	_, err = run(t, "set", "b", "plain text", "--ttl", "3600")
	require.NoError(t, err)

	out, err := run(t, "get", "a")
	require.NoError(t, err)
	assert.JSONEq(t, `{"x":1}`, out)

	out, err = run(t, "get", "b")
	require.NoError(t, err)
	assert.JSONEq(t, `"plain text"`, out)

	out, err = run(t, "has", "a")
	require.NoError(t, err)
	assert.Equal(t, "true\n", out)

	out, err = run(t, "stats")
	require.NoError(t, err)
	var stats map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, float64(2), stats["total_size"])
	assert.Equal(t, float64(2), stats["active_size"])
	assert.NotEmpty(t, stats["human_size"])

	_, err = run(t, "remove", "a")
	require.NoError(t, err)
	_, err = run(t, "get", "a")
	assert.ErrorContains(t, err, "not found")

	_, err = run(t, "clear")
	require.NoError(t, err)
	out, err = run(t, "has", "b")
	require.NoError(t, err)
	assert.Equal(t, "false\n", out)
}

func TestInvalidBackend(t *testing.T) {
	t.Setenv("FILECACHE_LOG_LEVEL", "none")
	_, err := run(t, "--cache-dir", t.TempDir(), "--backend", "memcached", "stats")
	assert.Error(t, err)
	rootCmd.PersistentFlags().Set("backend", "")
	rootCmd.PersistentFlags().Set("cache-dir", "")
}
