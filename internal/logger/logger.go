// Package logger provides the process-wide structured logger for TexQuery.
// It wraps zerolog; --verbose switches the level from info to debug.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config holds logger configuration.
type Config struct {
	// Level is one of debug, info, warn, error. Defaults to info.
	Level string

	// Pretty selects the human-readable console format instead of JSON.
	Pretty bool

	// File, if set, also appends JSON logs to this path.
	File string
}

var (
	mu      sync.RWMutex
	output  io.Writer = os.Stderr
	pretty            = true
	level             = zerolog.InfoLevel
	verbose bool
	file    *os.File
	base    = build()
)

func build() zerolog.Logger {
	var w io.Writer = output
	if pretty {
		w = zerolog.ConsoleWriter{Out: output, TimeFormat: time.Kitchen, NoColor: output != os.Stderr}
	}
	if file != nil {
		w = io.MultiWriter(w, file)
	}
	lvl := level
	if verbose {
		lvl = zerolog.DebugLevel
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// Init configures the logger. The returned function closes the log file.
func Init(cfg Config) (func() error, error) {
	lvl, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		lvl = zerolog.InfoLevel
	}

	var f *os.File
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		f, err = os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if file != nil {
		file.Close()
	}
	level = lvl
	pretty = cfg.Pretty
	file = f
	base = build()

	return func() error {
		mu.Lock()
		defer mu.Unlock()
		if file == nil {
			return nil
		}
		err := file.Close()
		file = nil
		base = build()
		return err
	}, nil
}

// L returns the current logger.
func L() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := base
	return &l
}

// SetVerbose enables or disables debug-level logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	base = build()
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the writer for log output and switches to JSON lines.
// Useful for testing. Passing os.Stderr restores the console format.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	pretty = w == os.Stderr
	base = build()
}

// Debug logs a formatted message at debug level.
func Debug(format string, args ...any) {
	L().Debug().Msgf(format, args...)
}

// Info logs a formatted message at info level.
func Info(format string, args ...any) {
	L().Info().Msgf(format, args...)
}

// Warn logs a formatted message at warn level.
func Warn(format string, args ...any) {
	L().Warn().Msgf(format, args...)
}

// Section marks the start of a pipeline stage at debug level.
func Section(name string) {
	L().Debug().Str("section", name).Msg("=== " + name + " ===")
}
