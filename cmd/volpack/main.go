// Command volpack converts a Decathlon dataset directory into one HDF5 file.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/robert-malhotra/volpack/internal/config"
	"github.com/robert-malhotra/volpack/internal/convert"
	"github.com/robert-malhotra/volpack/internal/logging"
)

const helpMessage = `
converts a Medical Segmentation Decathlon dataset into a single HDF5 file

Usage: volpack [options]

      -config            (string)  TOML file with settings; flags override it
      -data_path         (string)  Directory holding dataset.json
      -save_path         (string)  Root output directory
      -output_filename   (string)  Output file name
      -resize            (int)     Crop size of the first three axes
      -split             (float)   Fraction of samples used for training
      -seed              (int)     Seed of the train/validation split, 0 to 4294967295
      -no_clobber        (flag)    Fail instead of replacing an existing output file
      -strict_channels   (flag)    Fail on a channel with zero standard deviation
      -compression       (string)  gzip, lz4, zstd or none
      -compression_level (int)     gzip level 1-9 or zstd level
      -shuffle           (flag)    Byte shuffle before compression
      -fletcher32        (flag)    Add Fletcher-32 chunk checksums
      -log_file          (string)  Write logs to a rotating file
      -log_json          (flag)    Log as JSON
      -verbose           (flag)    Log per-sample detail
  -h, -help              (flag)    Show help message

The output is <save_path>/<resize>x<resize>/<output_filename>.

Only -data_path, -save_path, -output_filename, -resize and -split come from
the original converter. The other flags are volpack additions; left unset,
they reproduce its behaviour (gzip level 4, seed 816, an existing output
file is replaced with a warning).
`

func main() {
	os.Exit(runWithArgs(os.Args[1:], os.Stdout, os.Stderr))
}

func runWithArgs(args []string, stdout, stderr io.Writer) int {
	def := config.Default()

	fs := flag.NewFlagSet("volpack", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, helpMessage) }

	var (
		showHelp       bool
		configPath     string
		dataPath       string
		savePath       string
		outputFilename string
		resize         int
		split          float64
		seed           uint64
		noClobber      bool
		strictChannels bool
		codec          string
		level          int
		shuffle        bool
		fletcher32     bool
		logFile        string
		logJSON        bool
		verbose        bool
	)
	fs.BoolVar(&showHelp, "help", false, "Show help message")
	fs.BoolVar(&showHelp, "h", false, "Show help message")
	fs.StringVar(&configPath, "config", "", "TOML configuration file")
	fs.StringVar(&dataPath, "data_path", def.DataPath, "Directory holding dataset.json")
	fs.StringVar(&savePath, "save_path", def.SavePath, "Root output directory")
	fs.StringVar(&outputFilename, "output_filename", def.OutputFilename, "Output file name")
	fs.IntVar(&resize, "resize", def.Resize, "Crop size of the first three axes")
	fs.Float64Var(&split, "split", def.Split, "Fraction of samples used for training")
	fs.Uint64Var(&seed, "seed", uint64(def.Seed), "Seed of the train/validation split (0 to 4294967295)")
	fs.BoolVar(&noClobber, "no_clobber", false, "Fail instead of replacing an existing output file")
	fs.BoolVar(&strictChannels, "strict_channels", false, "Fail on a channel with zero standard deviation")
	fs.StringVar(&codec, "compression", def.Compression.Codec, "gzip, lz4, zstd or none")
	fs.IntVar(&level, "compression_level", def.Compression.Level, "Compression level")
	fs.BoolVar(&shuffle, "shuffle", false, "Byte shuffle before compression")
	fs.BoolVar(&fletcher32, "fletcher32", false, "Add Fletcher-32 chunk checksums")
	fs.StringVar(&logFile, "log_file", "", "Rotating log file")
	fs.BoolVar(&logJSON, "log_json", false, "Log as JSON")
	fs.BoolVar(&verbose, "verbose", false, "Log per-sample detail")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if showHelp {
		fs.Usage()
		return 0
	}
	if seed > math.MaxUint32 {
		fmt.Fprintf(stderr, "error: -seed %d is outside [0, %d]\n", seed, uint64(math.MaxUint32))
		return 2
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "unexpected arguments: %v\n", fs.Args())
		fs.Usage()
		return 2
	}

	cfg := def
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return 1
		}
	}

	// Only flags given on the command line override the file.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "data_path":
			cfg.DataPath = dataPath
		case "save_path":
			cfg.SavePath = savePath
		case "output_filename":
			cfg.OutputFilename = outputFilename
		case "resize":
			cfg.Resize = resize
		case "split":
			cfg.Split = split
		case "seed":
			cfg.Seed = uint32(seed)
		case "no_clobber":
			cfg.NoClobber = noClobber
		case "strict_channels":
			cfg.StrictChannels = strictChannels
		case "compression":
			cfg.Compression.Codec = codec
		case "compression_level":
			cfg.Compression.Level = level
		case "shuffle":
			cfg.Compression.Shuffle = shuffle
		case "fletcher32":
			cfg.Compression.Fletcher32 = fletcher32
		case "log_file":
			cfg.Log.Logfile = logFile
		case "log_json":
			cfg.Log.JSON = logJSON
		case "verbose":
			cfg.Log.Verbose = verbose
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	logger := logging.New(logging.Options{
		Level:      cfg.LogLevel(),
		JSON:       cfg.Log.JSON,
		File:       cfg.Log.Logfile,
		MaxSizeMB:  cfg.Log.MaxSize,
		MaxAgeDays: cfg.Log.MaxAge,
		Writer:     stderr,
	})
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	report, err := convert.Run(ctx, cfg, logger, convert.WithProgress(stderr))
	if err != nil {
		logger.Error("conversion failed", "error", err)
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "HDF5 file saved to %s (%s, %d train / %d validation samples, %s)\n",
		report.OutputPath, humanize.Bytes(uint64(report.FileBytes)),
		report.Train, report.Validate, report.Duration.Round(time.Millisecond))
	return 0
}
