// Package config holds the converter settings: built-in defaults, an
// optional TOML file, and validation.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/robert-malhotra/volpack/internal/split"
)

var (
	ErrInvalid    = errors.New("invalid configuration")
	ErrUnknownKey = errors.New("unknown configuration key")
)

// Codecs accepted for compression.codec.
const (
	CodecGzip = "gzip"
	CodecLZ4  = "lz4"
	CodecZstd = "zstd"
	CodecNone = "none"
)

// Config is the full converter configuration.
type Config struct {
	DataPath       string  `toml:"data_path"`
	SavePath       string  `toml:"save_path"`
	OutputFilename string  `toml:"output_filename"`
	Resize         int     `toml:"resize"`
	Split          float64 `toml:"split"`
	Seed           uint32  `toml:"seed"`

	// NoClobber refuses to replace an existing output file.
	NoClobber bool `toml:"no_clobber"`
	// StrictChannels fails on a channel with zero standard deviation
	// instead of zeroing it.
	StrictChannels bool `toml:"strict_channels"`

	Compression CompressionConfig `toml:"compression"`
	Log         LogConfig         `toml:"log"`
}

// CompressionConfig selects the chunk filters.
type CompressionConfig struct {
	Codec      string `toml:"codec"`
	Level      int    `toml:"level"`
	Shuffle    bool   `toml:"shuffle"`
	Fletcher32 bool   `toml:"fletcher32"`
}

// LogConfig mirrors the logging options.
type LogConfig struct {
	Logfile string `toml:"logfile"`
	MaxSize int    `toml:"max_log_size"`
	MaxAge  int    `toml:"max_log_age"`
	JSON    bool   `toml:"json"`
	Verbose bool   `toml:"verbose"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		DataPath:       "../../data/decathlon/Task01_BrainTumour/",
		SavePath:       "../../data/decathlon/",
		OutputFilename: "decathlon_brats.h5",
		Resize:         144,
		Split:          0.85,
		Seed:           split.DefaultSeed,
		Compression: CompressionConfig{
			Codec: CodecGzip,
			Level: 4,
		},
		Log: LogConfig{
			MaxSize: 100,
			MaxAge:  30,
		},
	}
}

// Load reads a TOML file over the defaults. Keys the file sets that no
// field takes are an error.
func Load(path string) (Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("loading config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return cfg, fmt.Errorf("%w in %s: %s", ErrUnknownKey, path, strings.Join(keys, ", "))
	}
	return cfg, nil
}

// Validate checks ranges and names.
func (c Config) Validate() error {
	var problems []string
	if c.DataPath == "" {
		problems = append(problems, "data_path is empty")
	}
	if c.OutputFilename == "" {
		problems = append(problems, "output_filename is empty")
	}
	if c.Resize <= 0 {
		problems = append(problems, fmt.Sprintf("resize %d must be positive", c.Resize))
	}
	if c.Split < 0 || c.Split > 1 {
		problems = append(problems, fmt.Sprintf("split %g must lie in [0, 1]", c.Split))
	}
	switch c.Compression.Codec {
	case CodecGzip:
		if c.Compression.Level < 1 || c.Compression.Level > 9 {
			problems = append(problems, fmt.Sprintf("gzip level %d must lie in [1, 9]", c.Compression.Level))
		}
	case CodecZstd:
		if c.Compression.Level < 0 || c.Compression.Level > 22 {
			problems = append(problems, fmt.Sprintf("zstd level %d must lie in [0, 22]", c.Compression.Level))
		}
	case CodecLZ4, CodecNone:
	default:
		problems = append(problems, fmt.Sprintf("unknown codec %q", c.Compression.Codec))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// OutputDir is <save_path>/<resize>x<resize>.
func (c Config) OutputDir() string {
	return filepath.Join(c.SavePath, fmt.Sprintf("%dx%d", c.Resize, c.Resize))
}

// OutputPath is the container file path.
func (c Config) OutputPath() string {
	return filepath.Join(c.OutputDir(), c.OutputFilename)
}

// LogLevel is Debug when verbose, Info otherwise.
func (c Config) LogLevel() slog.Level {
	if c.Log.Verbose {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}
