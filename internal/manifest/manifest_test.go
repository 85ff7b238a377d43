package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validManifest = `{
  "name": "BRATS",
  "description": "Gliomas segmentation tumour and oedema in on brain images",
  "reference": "https://www.med.upenn.edu/sbia/brats2017.html",
  "licence": "CC-BY-SA 4.0",
  "release": "2.0 04/05/2018",
  "tensorImageSize": "4D",
  "modalities": {"0": "FLAIR", "1": "T1w", "2": "t1gd", "3": "T2w", "10": "extra"},
  "labels": {"0": "background", "1": "edema", "2": "non-enhancing tumor", "3": "enhancing tumour"},
  "numTraining": 2,
  "numTest": 1,
  "training": [
    {"image": "./imagesTr/BRATS_001.nii.gz", "label": "./labelsTr/BRATS_001.nii.gz"},
    {"image": "./imagesTr/BRATS_002.nii.gz", "label": "./labelsTr/BRATS_002.nii.gz"}
  ],
  "test": ["./imagesTs/BRATS_485.nii.gz"]
}`

func writeManifest(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(body), 0o644))
	return dir
}

func TestLoad(t *testing.T) {
	dir := writeManifest(t, validManifest)
	m, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "BRATS", m.Name)
	assert.Equal(t, "CC-BY-SA 4.0", m.License)
	assert.Equal(t, 2, m.NumTraining)
	assert.Equal(t, dir, m.DataPath())
	assert.Equal(t, []string{"FLAIR", "T1w", "t1gd", "T2w", "extra"}, m.ModalityNames())

	md := m.Metadata()
	assert.Equal(t, "2.0 04/05/2018", md["release"])
	assert.Len(t, md, 5)
}

func TestSample(t *testing.T) {
	dir := writeManifest(t, validManifest)
	m, err := Load(dir)
	require.NoError(t, err)

	s, err := m.Sample(1)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "imagesTr", "BRATS_002.nii.gz"), s.Image)
	assert.Equal(t, filepath.Join(dir, "labelsTr", "BRATS_002.nii.gz"), s.Label)

	_, err = m.Sample(2)
	assert.Error(t, err)
	_, err = m.Sample(-1)
	assert.Error(t, err)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(t.TempDir())
	assert.ErrorIs(t, err, ErrManifestNotFound)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"name": `},
		{"missing training", `{"name":"a","description":"b","licence":"c","reference":"d","release":"e","modalities":{"0":"x"},"numTraining":1}`},
		{"record without label", `{"name":"a","description":"b","licence":"c","reference":"d","release":"e","modalities":{"0":"x"},"numTraining":1,"training":[{"image":"i.nii"}]}`},
		{"non-numeric modality key", `{"name":"a","description":"b","licence":"c","reference":"d","release":"e","modalities":{"zero":"x"},"numTraining":1,"training":[{"image":"i","label":"l"}]}`},
		{"zero samples", `{"name":"a","description":"b","licence":"c","reference":"d","release":"e","modalities":{"0":"x"},"numTraining":0,"training":[]}`},
		{"count exceeds records", `{"name":"a","description":"b","licence":"c","reference":"d","release":"e","modalities":{"0":"x"},"numTraining":3,"training":[{"image":"i","label":"l"}]}`},
		{"name not a string", `{"name":7,"description":"b","licence":"c","reference":"d","release":"e","modalities":{"0":"x"},"numTraining":1,"training":[{"image":"i","label":"l"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeManifest(t, tt.body))
			assert.ErrorIs(t, err, ErrInvalidManifest)
		})
	}
}

func TestNumTrainingBelowRecords(t *testing.T) {
	body := `{"name":"a","description":"b","licence":"c","reference":"d","release":"e","modalities":{"0":"x"},"numTraining":1,"training":[{"image":"i","label":"l"},{"image":"j","label":"m"}]}`
	m, err := Parse([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, 1, m.NumTraining)
	_, err = m.Sample(1)
	assert.Error(t, err)
}
