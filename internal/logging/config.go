package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/dicdwatch/dicdwatch/internal/config"
)

// NewFromConfig builds the process logger. Every record carries the service
// name, and the node ID when one is configured, so logs from several API
// instances sharing an invalidation bus can be told apart.
func NewFromConfig(cfg config.LoggingConfig) (*Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	output, err := openOutput(cfg.OutputPath)
	if err != nil {
		return nil, err
	}

	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: consoleTimeFormat(cfg.TimeFormat)}
	} else {
		zerolog.TimeFieldFormat = fieldTimeFormat(cfg.TimeFormat)
	}

	zctx := zerolog.New(output).Level(level).With().Timestamp()
	if cfg.Service != "" {
		zctx = zctx.Str("service", cfg.Service)
	}
	if cfg.NodeID != "" {
		zctx = zctx.Str("node_id", cfg.NodeID)
	}
	if cfg.Caller {
		zctx = zctx.Caller()
	}

	return &Logger{zl: zctx.Logger(), fields: make(map[string]interface{})}, nil
}

// openOutput resolves stdout, stderr or an append-only log file
func openOutput(path string) (io.Writer, error) {
	switch path {
	case "stdout", "":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	return file, nil
}

func consoleTimeFormat(format string) string {
	if format == "Kitchen" {
		return time.Kitchen
	}
	return time.RFC3339
}

func fieldTimeFormat(format string) string {
	switch format {
	case "Unix":
		return zerolog.TimeFormatUnix
	case "UnixMs":
		return zerolog.TimeFormatUnixMs
	default:
		return time.RFC3339
	}
}
