package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHelp(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 0, runWithArgs([]string{"-h"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "Usage: volpack")
}

func TestBadFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, runWithArgs([]string{"-nope"}, &stdout, &stderr))
	assert.Equal(t, 2, runWithArgs([]string{"extra"}, &stdout, &stderr))
}

func TestInvalidFlagValue(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 1, runWithArgs([]string{"-split", "1.5"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "invalid configuration")
}

func TestMissingManifest(t *testing.T) {
	var stdout, stderr bytes.Buffer
	args := []string{"-data_path", t.TempDir(), "-save_path", t.TempDir()}
	assert.Equal(t, 1, runWithArgs(args, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "dataset manifest not found")
	assert.Empty(t, stdout.String())
}

func TestConfigFileAndFlagPrecedence(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "volpack.toml")
	body := "data_path = \"" + filepath.ToSlash(t.TempDir()) + "\"\n" +
		"save_path = \"" + filepath.ToSlash(t.TempDir()) + "\"\n" +
		"split = 2.0\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(body), 0o644))

	// The file alone is invalid.
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 1, runWithArgs([]string{"-config", cfgPath}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "invalid configuration")

	// An explicit flag wins over the file, so the run gets as far as the
	// empty data directory.
	stderr.Reset()
	assert.Equal(t, 1, runWithArgs([]string{"-config", cfgPath, "-split", "0.5"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "dataset manifest not found")
}

func TestUnknownConfigKey(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "volpack.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("resise = 128\n"), 0o644))

	var stdout, stderr bytes.Buffer
	assert.Equal(t, 1, runWithArgs([]string{"-config", cfgPath}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "resise")
}

func TestSeedOutOfRange(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, runWithArgs([]string{"-seed", "4294967296"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "-seed 4294967296 is outside")

	// The largest seed is accepted and the run proceeds to the manifest.
	stderr.Reset()
	args := []string{"-seed", "4294967295", "-data_path", t.TempDir(), "-save_path", t.TempDir()}
	assert.Equal(t, 1, runWithArgs(args, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "dataset manifest not found")
}

func TestHelpNamesAddedFlags(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.Equal(t, 0, runWithArgs([]string{"-help"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "volpack additions")
}
