package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/volpack/hdf5"
)

func TestInspect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.h5")
	f, err := hdf5.Create(path)
	require.NoError(t, err)
	root := f.Root()
	require.NoError(t, root.CreateStringDataset("name", "BRATS"))
	ds, err := root.CreateGrowable("imgs_train", []uint64{2, 2, 1}, hdf5.WithCompression(4))
	require.NoError(t, err)
	require.NoError(t, ds.Append([]float64{1, 2, 3, 4, 5, 6, 7, 8}, 2))
	require.NoError(t, ds.SetAttr("modalities", []string{"FLAIR"}))
	require.NoError(t, f.SetAttr("resize", 2))
	require.NoError(t, f.Close())

	var stdout, stderr bytes.Buffer
	require.Equal(t, 0, runWithArgs([]string{path}, &stdout, &stderr), stderr.String())

	out := stdout.String()
	assert.Contains(t, out, "/ (group)")
	assert.Contains(t, out, "@resize = 2")
	assert.Contains(t, out, `/name vlen string = "BRATS"`)
	assert.Contains(t, out, "/imgs_train float64 (2, 2, 2, 1) max (inf, 2, 2, 1) chunks (1, 2, 2, 1) [deflate]")
	assert.Contains(t, out, "@modalities = [FLAIR]")
}

func TestInspectUsage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, runWithArgs(nil, &stdout, &stderr))
	assert.Equal(t, 1, runWithArgs([]string{filepath.Join(t.TempDir(), "missing.h5")}, &stdout, &stderr))
}
