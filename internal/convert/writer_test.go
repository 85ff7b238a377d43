package convert

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/volpack/hdf5"
	"github.com/robert-malhotra/volpack/internal/volume"
)

func TestKindNames(t *testing.T) {
	var names []string
	for _, k := range Kinds() {
		names = append(names, k.DatasetName())
	}
	assert.Equal(t, []string{"imgs_train", "imgs_test", "msks_train", "msks_test"}, names)
	assert.True(t, ImagesTest.IsImage())
	assert.False(t, MasksTrain.IsImage())
	assert.Equal(t, ImagesTrain, ImagesTest.train())
	assert.Equal(t, MasksTrain, MasksTest.train())
}

func TestWriterFallbackShapes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.h5")
	w, err := OpenWriter(path, WriterOptions{Resize: 8, Channels: 3})
	require.NoError(t, err)

	// A train volume fixes the shape its test dataset falls back to.
	require.NoError(t, w.Append(MasksTrain, volume.New(2, 5, 6, 1)))
	for _, k := range Kinds() {
		require.NoError(t, w.Ensure(k))
	}
	assert.EqualValues(t, 2, w.Rows(MasksTrain))
	assert.Zero(t, w.Rows(MasksTest))
	require.NoError(t, w.Close())

	f, err := hdf5.Open(path)
	require.NoError(t, err)
	defer f.Close()

	want := map[string][]uint64{
		"imgs_train": {0, 8, 8, 3},
		"imgs_test":  {0, 8, 8, 3},
		"msks_train": {2, 5, 6, 1},
		"msks_test":  {0, 5, 6, 1},
	}
	for name, shape := range want {
		ds, err := f.OpenDataset(name)
		require.NoError(t, err, name)
		assert.Equal(t, shape, ds.Shape(), name)
	}
}

func TestWriterAppendShapeMismatch(t *testing.T) {
	w, err := OpenWriter(filepath.Join(t.TempDir(), "out.h5"), WriterOptions{Resize: 4, Channels: 1})
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Append(ImagesTrain, volume.New(1, 4, 4, 1)))
	err = w.Append(ImagesTrain, volume.New(1, 4, 3, 1))
	assert.ErrorIs(t, err, hdf5.ErrShapeMismatch)
}
