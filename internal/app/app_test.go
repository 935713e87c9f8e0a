package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/planweave/internal/testutil"
)

func writeManifest(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "worker.hcl")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o600))
	return path
}

func TestNewAppFromManifest(t *testing.T) {
	path := writeManifest(t, `
worker {
  id = "alice"
}

plan "abs" {
  args_shape = [[1]]
}
`)
	out := &testutil.SafeBuffer{}
	a := NewApp(out, &Config{ManifestPath: path, LogLevel: "debug"})

	assert.Equal(t, "alice", a.Worker().ID())
	assert.Contains(t, out.String(), "Advertising plan declaration.")
}

func TestNewAppFlagOverrides(t *testing.T) {
	path := writeManifest(t, `
worker {
  id     = "alice"
  listen = ":7001"
}
`)
	out := &testutil.SafeBuffer{}
	a := NewApp(out, &Config{ManifestPath: path, Listen: ":7002", LogFormat: "json", LogLevel: "info"})
	assert.Equal(t, ":7002", a.listen)
}

func TestNewAppPanicsOnBadManifest(t *testing.T) {
	out := &testutil.SafeBuffer{}
	assert.Panics(t, func() {
		NewApp(out, &Config{ManifestPath: filepath.Join(t.TempDir(), "missing.hcl")})
	})
}

func TestRunStopsOnContextCancel(t *testing.T) {
	path := writeManifest(t, `
worker {
  id     = "alice"
  listen = "127.0.0.1:0"
}
`)
	out := &testutil.SafeBuffer{}
	a := NewApp(out, &Config{ManifestPath: path})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down after context cancellation")
	}
	assert.Contains(t, out.String(), "Worker serving.")
}
