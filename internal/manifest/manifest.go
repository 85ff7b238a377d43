// Package manifest loads and validates a Decathlon dataset.json.
package manifest

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/robert-malhotra/volpack/internal/logging"
)

// FileName is the manifest's name inside a dataset directory.
const FileName = "dataset.json"

var (
	ErrManifestNotFound = errors.New("dataset manifest not found")
	ErrInvalidManifest  = errors.New("invalid dataset manifest")
)

//go:embed schema.json
var schemaJSON string

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = jsonschema.CompileString("schema.json", schemaJSON)
	})
	return schema, schemaErr
}

// Sample is one training record; paths are relative to the dataset
// directory.
type Sample struct {
	Image string `json:"image"`
	Label string `json:"label"`
}

// Manifest is a parsed dataset.json.
type Manifest struct {
	Name            string            `json:"name"`
	Description     string            `json:"description"`
	License         string            `json:"licence"`
	Reference       string            `json:"reference"`
	Release         string            `json:"release"`
	TensorImageSize string            `json:"tensorImageSize"`
	Modalities      map[string]string `json:"modalities"`
	Labels          map[string]string `json:"labels"`
	NumTraining     int               `json:"numTraining"`
	NumTest         int               `json:"numTest"`
	Training        []Sample          `json:"training"`
	Test            []string          `json:"test"`

	dataPath string
}

// Load reads <dataPath>/dataset.json.
func Load(dataPath string) (*Manifest, error) {
	path := filepath.Join(dataPath, FileName)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrManifestNotFound, path, err)
	}
	m, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.dataPath = dataPath
	return m, nil
}

// Parse validates and decodes a manifest document. Sample paths resolve
// against the current directory until the manifest is loaded with Load.
func Parse(raw []byte) (*Manifest, error) {
	sch, err := compiledSchema()
	if err != nil {
		return nil, fmt.Errorf("compiling manifest schema: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if err := sch.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}

	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if m.NumTraining > len(m.Training) {
		return nil, fmt.Errorf("%w: numTraining %d exceeds %d training records", ErrInvalidManifest, m.NumTraining, len(m.Training))
	}
	return &m, nil
}

// DataPath is the directory the manifest was loaded from.
func (m *Manifest) DataPath() string { return m.dataPath }

// ModalityNames returns the modality names ordered by channel index.
func (m *Manifest) ModalityNames() []string {
	type entry struct {
		index int
		name  string
	}
	entries := make([]entry, 0, len(m.Modalities))
	for k, v := range m.Modalities {
		i, _ := strconv.Atoi(k)
		entries = append(entries, entry{i, v})
	}
	slices.SortFunc(entries, func(a, b entry) int { return a.index - b.index })

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.name
	}
	return names
}

// Sample returns the resolved image and label paths of training record i.
func (m *Manifest) Sample(i int) (Sample, error) {
	if i < 0 || i >= m.NumTraining {
		return Sample{}, fmt.Errorf("sample %d outside [0, %d)", i, m.NumTraining)
	}
	s := m.Training[i]
	return Sample{
		Image: filepath.Join(m.dataPath, s.Image),
		Label: filepath.Join(m.dataPath, s.Label),
	}, nil
}

// Metadata returns the descriptive strings copied into the container,
// keyed by their dataset names.
func (m *Manifest) Metadata() map[string]string {
	return map[string]string{
		"name":        m.Name,
		"description": m.Description,
		"license":     m.License,
		"reference":   m.Reference,
		"release":     m.Release,
	}
}

// LogSummary logs the manifest's descriptive fields.
func (m *Manifest) LogSummary(l *logging.Logger) {
	l.Info("dataset",
		"name", m.Name,
		"description", m.Description,
		"release", m.Release,
		"reference", m.Reference,
		"license", m.License,
		"samples", m.NumTraining,
		"modalities", m.ModalityNames(),
	)
}
