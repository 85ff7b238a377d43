package convert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/DmitriyVTitov/size"
	"github.com/schollz/progressbar/v3"

	"github.com/robert-malhotra/volpack/hdf5"
	"github.com/robert-malhotra/volpack/internal/config"
	"github.com/robert-malhotra/volpack/internal/logging"
	"github.com/robert-malhotra/volpack/internal/manifest"
	"github.com/robert-malhotra/volpack/internal/nifti"
	"github.com/robert-malhotra/volpack/internal/split"
	"github.com/robert-malhotra/volpack/internal/volume"
)

// Version is recorded in the container's volpack_version attribute.
// Release builds set it with -ldflags "-X ...convert.Version=...".
var Version = "dev"

const numSteps = 4

// Report summarises a finished run.
type Report struct {
	OutputPath string
	// Rows per array dataset, keyed by dataset name.
	Rows               map[string]uint64
	Train              int
	Validate           int
	DegenerateChannels int
	// StoredBytes is the filtered chunk payload; FileBytes the final file size.
	StoredBytes uint64
	FileBytes   int64
	Duration    time.Duration
}

// RunOption tunes Run.
type RunOption func(*runOptions)

type runOptions struct {
	progress io.Writer
}

// WithProgress sends the progress bars to w. The default is os.Stderr; nil
// turns them off.
func WithProgress(w io.Writer) RunOption {
	return func(o *runOptions) { o.progress = w }
}

type step struct {
	kind    Kind
	samples []int
	title   string
}

// Run converts the dataset described by cfg into one container file.
func Run(ctx context.Context, cfg config.Config, logger *logging.Logger, opts ...RunOption) (*Report, error) {
	ro := runOptions{progress: os.Stderr}
	for _, opt := range opts {
		opt(&ro)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()

	outDir, outPath := cfg.OutputDir(), cfg.OutputPath()
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrDirectoryCreate, outDir, err)
	}
	if err := clearOutput(outPath, cfg.NoClobber, logger); err != nil {
		return nil, err
	}

	m, err := manifest.Load(cfg.DataPath)
	if err != nil {
		return nil, err
	}
	m.LogSummary(logger)

	part, err := split.Split(m.NumTraining, cfg.Seed, cfg.Split)
	if err != nil {
		return nil, err
	}
	if err := part.Verify(m.NumTraining); err != nil {
		return nil, err
	}
	logger.Info("split samples", "train", len(part.Train), "validate", len(part.Validate), "seed", cfg.Seed, "ratio", cfg.Split)

	modalities := m.ModalityNames()
	w, err := OpenWriter(outPath, WriterOptions{
		Resize:   cfg.Resize,
		Channels: len(modalities),
		Dataset:  datasetOptions(cfg.Compression),
	})
	if err != nil {
		return nil, err
	}

	report := &Report{
		OutputPath: outPath,
		Rows:       make(map[string]uint64, numKinds),
		Train:      len(part.Train),
		Validate:   len(part.Validate),
	}
	if err := process(ctx, w, m, part, cfg, logger, ro, report); err != nil {
		// The partial container is left in place.
		if cerr := w.Close(); cerr != nil {
			logger.Error("closing partial container", "path", outPath, "error", cerr)
		}
		return nil, err
	}

	report.StoredBytes = w.StoredBytes()
	for _, k := range Kinds() {
		report.Rows[k.DatasetName()] = w.Rows(k)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing %s: %w", outPath, err)
	}
	if fi, err := os.Stat(outPath); err == nil {
		report.FileBytes = fi.Size()
	}
	report.Duration = time.Since(start)

	logger.Info("Finished processing.")
	logger.Info("HDF5 saved",
		"path", outPath,
		logging.Bytes("file_size", uint64(report.FileBytes)),
		logging.Bytes("stored", report.StoredBytes),
		"elapsed", report.Duration.Round(time.Millisecond),
	)
	return report, nil
}

func process(ctx context.Context, w *Writer, m *manifest.Manifest, part split.Partition, cfg config.Config, logger *logging.Logger, ro runOptions, report *Report) error {
	if err := w.WriteMetadata(m); err != nil {
		return err
	}
	attrs := []struct {
		name  string
		value any
	}{
		{"resize", cfg.Resize},
		{"split", cfg.Split},
		{"seed", cfg.Seed},
		{"volpack_version", Version},
	}
	for _, a := range attrs {
		if err := w.SetAttr(a.name, a.value); err != nil {
			return fmt.Errorf("writing attribute %s: %w", a.name, err)
		}
	}

	policy := volume.CentreDegenerate
	if cfg.StrictChannels {
		policy = volume.StrictDegenerate
	}
	modalities := m.ModalityNames()

	steps := []step{
		{ImagesTrain, part.Train, "Save training set images."},
		{ImagesTest, part.Validate, "Save validation set images."},
		{MasksTrain, part.Train, "Save training set masks."},
		{MasksTest, part.Validate, "Save validation set masks."},
	}
	for i, st := range steps {
		n := i + 1
		sl := logger.WithStage(n, numSteps).WithDataset(st.kind.DatasetName())
		sl.Info(fmt.Sprintf("Step %d of %d. %s", n, numSteps, st.title), "samples", len(st.samples))

		bar := newBar(ro.progress, len(st.samples), st.kind.DatasetName())
		for _, idx := range st.samples {
			if err := ctx.Err(); err != nil {
				return err
			}
			degenerate, err := writeSample(w, m, st.kind, idx, cfg.Resize, policy, sl)
			if err != nil {
				return err
			}
			report.DegenerateChannels += degenerate
			if bar != nil {
				_ = bar.Add(1)
			}
		}
		if bar != nil {
			_ = bar.Finish()
		}

		if err := w.Ensure(st.kind); err != nil {
			return err
		}
		if st.kind.IsImage() {
			if err := w.SetModalities(st.kind, modalities); err != nil {
				return fmt.Errorf("writing modalities on %s: %w", st.kind, err)
			}
		}
		sl.Debug("step done", "rows", w.Rows(st.kind))
	}
	return nil
}

// writeSample reads, prepares and appends sample idx. It returns the number
// of degenerate channels that were zeroed.
func writeSample(w *Writer, m *manifest.Manifest, kind Kind, idx, resize int, policy volume.DegeneratePolicy, logger *logging.Logger) (int, error) {
	s, err := m.Sample(idx)
	if err != nil {
		return 0, err
	}
	path := s.Label
	if kind.IsImage() {
		path = s.Image
	}
	sl := logger.WithSample(idx, path)

	img, err := nifti.Read(path)
	if err != nil {
		return 0, fmt.Errorf("%w %s: %w", ErrSampleRead, path, err)
	}
	raw := img.Volume

	var (
		v          *volume.Volume
		degenerate []int
	)
	if kind.IsImage() {
		v, degenerate, err = volume.PrepareImage(raw, resize, policy)
	} else {
		v, err = volume.PrepareMask(raw, resize)
	}
	if err != nil {
		return 0, fmt.Errorf("preparing %s: %w", path, err)
	}
	if len(degenerate) > 0 {
		sl.Warn("degenerate channels set to zero", "channels", degenerate)
	}
	sl.Debug("sample prepared",
		"raw_shape", raw.Shape,
		"voxel_size", img.Header.PixDim,
		"bitpix", img.Header.BitPix,
		"descrip", img.Header.Descrip,
		"shape", v.Shape,
		logging.Bytes("memory", uint64(size.Of(v))),
	)

	if err := w.Append(kind, v); err != nil {
		return 0, err
	}
	return len(degenerate), nil
}

// clearOutput removes an existing output file unless noClobber is set.
func clearOutput(path string, noClobber bool, logger *logging.Logger) error {
	_, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil
	case err != nil:
		return fmt.Errorf("checking output %s: %w", path, err)
	case noClobber:
		return fmt.Errorf("%w: %s", ErrOutputPathConflict, path)
	}
	logger.Warn("Removing existing data file", "path", path)
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("removing %s: %w", path, err)
	}
	return nil
}

func newBar(w io.Writer, n int, desc string) *progressbar.ProgressBar {
	if w == nil || n == 0 {
		return nil
	}
	return progressbar.NewOptions(n,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(desc),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(w) }),
	)
}

func datasetOptions(c config.CompressionConfig) []hdf5.DatasetOption {
	var opts []hdf5.DatasetOption
	switch c.Codec {
	case config.CodecGzip:
		opts = append(opts, hdf5.WithCompression(c.Level))
	case config.CodecLZ4:
		opts = append(opts, hdf5.WithLZ4())
	case config.CodecZstd:
		opts = append(opts, hdf5.WithZstd(c.Level))
	}
	if c.Shuffle {
		opts = append(opts, hdf5.WithShuffle())
	}
	if c.Fletcher32 {
		opts = append(opts, hdf5.WithFletcher32())
	}
	return opts
}
