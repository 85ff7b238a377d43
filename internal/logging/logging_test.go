package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Writer: &buf})
	l.WithStage(2, 4).WithDataset("imgs_test").Info("appended", Bytes("size", 1500000))

	out := buf.String()
	assert.Contains(t, out, "step=2")
	assert.Contains(t, out, "of=4")
	assert.Contains(t, out, "dataset=imgs_test")
	assert.Contains(t, out, `size="1.5 MB"`)
}

func TestJSONFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Writer: &buf, JSON: true, Level: slog.LevelDebug})
	l.WithSample(3, "imagesTr/BRATS_004.nii.gz").Debug("read")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "read", rec["msg"])
	assert.Equal(t, float64(3), rec["sample"])
	assert.Equal(t, "imagesTr/BRATS_004.nii.gz", rec["file"])
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Writer: &buf, Level: slog.LevelWarn})
	l.Info("hidden")
	l.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestRotatingFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "volpack.log")
	l := New(Options{File: p, MaxSizeMB: 1})
	l.Info("to file")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
}

func TestNoop(t *testing.T) {
	l := NoopLogger()
	l.Error("nothing")
	assert.NoError(t, l.Close())
}
