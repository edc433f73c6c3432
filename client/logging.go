package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// setupLogging opens the log file. The terminal belongs to the UI, so nothing
// is written to stdout.
func setupLogging(path, level string) (zerolog.Logger, *os.File, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("log level %q: %w", level, err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return zerolog.Nop(), nil, err
		}
	}
	logFile, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return zerolog.Nop(), nil, err
	}

	logger := zerolog.New(logFile).Level(lvl).With().Timestamp().Logger()
	return logger, logFile, nil
}
