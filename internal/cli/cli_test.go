package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseManifestFlag(t *testing.T) {
	var out bytes.Buffer
	cfg, done, err := Parse([]string{"-manifest", "worker.hcl", "-listen", ":9000", "-log-format", "JSON", "-log-level", "Debug"}, &out)
	require.NoError(t, err)
	require.False(t, done)

	assert.Equal(t, "worker.hcl", cfg.ManifestPath)
	assert.Equal(t, ":9000", cfg.Listen)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestParsePositionalManifest(t *testing.T) {
	var out bytes.Buffer
	cfg, done, err := Parse([]string{"worker.hcl"}, &out)
	require.NoError(t, err)
	require.False(t, done)
	assert.Equal(t, "worker.hcl", cfg.ManifestPath)
}

func TestParseNoManifestShowsUsage(t *testing.T) {
	var out bytes.Buffer
	cfg, done, err := Parse(nil, &out)
	require.NoError(t, err)
	assert.True(t, done)
	assert.Nil(t, cfg)
	assert.Contains(t, out.String(), "Usage:")
}

func TestParseHelp(t *testing.T) {
	var out bytes.Buffer
	cfg, done, err := Parse([]string{"-h"}, &out)
	require.NoError(t, err)
	assert.True(t, done)
	assert.Nil(t, cfg)
}

func TestParseInvalidLogFormat(t *testing.T) {
	var out bytes.Buffer
	_, _, err := Parse([]string{"-manifest", "worker.hcl", "-log-format", "xml"}, &out)
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 2, exitErr.Code)
	assert.Contains(t, exitErr.Message, "invalid log-format")
}

func TestParseInvalidLogLevel(t *testing.T) {
	var out bytes.Buffer
	_, _, err := Parse([]string{"-manifest", "worker.hcl", "-log-level", "loud"}, &out)
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 2, exitErr.Code)
}

func TestParseUnknownFlag(t *testing.T) {
	var out bytes.Buffer
	_, _, err := Parse([]string{"-bogus"}, &out)
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 2, exitErr.Code)
}
