// Package logging wraps log/slog with volpack's field names and an optional
// rotating log file.
package logging

import (
	"io"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/natefinch/lumberjack"
)

// Logger wraps slog.Logger with pipeline-specific context.
type Logger struct {
	*slog.Logger
	closer io.Closer
}

// Options configures New.
type Options struct {
	Level slog.Level
	JSON  bool

	// File, when set, sends output to a rotating log file instead of Writer.
	File       string
	MaxSizeMB  int
	MaxAgeDays int
	MaxBackups int

	// Writer defaults to os.Stderr.
	Writer io.Writer
}

// New creates a Logger from opts.
func New(opts Options) *Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	var closer io.Closer
	if opts.File != "" {
		lj := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB, // megabytes
			MaxAge:     opts.MaxAgeDays,
			MaxBackups: opts.MaxBackups,
		}
		w, closer = lj, lj
	}

	ho := &slog.HandlerOptions{Level: opts.Level}
	var h slog.Handler
	if opts.JSON {
		h = slog.NewJSONHandler(w, ho)
	} else {
		h = slog.NewTextHandler(w, ho)
	}
	return &Logger{Logger: slog.New(h), closer: closer}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return New(Options{Writer: io.Discard, Level: slog.Level(1000)})
}

// Close releases the log file, if any.
func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

func (l *Logger) with(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...), closer: l.closer}
}

// WithStage tags records with the pipeline step, e.g. 1 of 4.
func (l *Logger) WithStage(step, total int) *Logger {
	return l.with("step", step, "of", total)
}

// WithDataset tags records with the container dataset being written.
func (l *Logger) WithDataset(name string) *Logger {
	return l.with("dataset", name)
}

// WithSample tags records with a sample index and its source file.
func (l *Logger) WithSample(index int, path string) *Logger {
	return l.with("sample", index, "file", path)
}

// Bytes is a log attribute with a human-readable byte count.
func Bytes(key string, n uint64) slog.Attr {
	return slog.String(key, humanize.Bytes(n))
}
