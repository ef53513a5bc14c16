// Package logging builds the logrus logger shared by the CLI and the HTTP adapter
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config selects level, format and destination of log output
type Config struct {
	Level  string // panic..trace, default info
	Format string // "json" or "text"
	File   string // rotate into this file instead of writing to Output

	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int

	Output io.Writer // default os.Stderr
}

// New creates a logger from cfg
func New(cfg Config) (*logrus.Logger, error) {
	logger := logrus.New()

	level := logrus.InfoLevel
	if cfg.Level != "" {
		parsed, err := logrus.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		level = parsed
	}
	logger.SetLevel(level)

	switch strings.ToLower(cfg.Format) {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05.000",
		})
	default:
		return nil, fmt.Errorf("invalid log format %q (want json or text)", cfg.Format)
	}

	switch {
	case cfg.File != "":
		logger.SetOutput(&lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    orDefault(cfg.MaxSizeMB, 50),
			MaxBackups: orDefault(cfg.MaxBackups, 5),
			MaxAge:     orDefault(cfg.MaxAgeDays, 28),
			Compress:   true,
		})
	case cfg.Output != nil:
		logger.SetOutput(cfg.Output)
	default:
		logger.SetOutput(os.Stderr)
	}

	return logger, nil
}

// OrDiscard returns l, or a logger that drops everything when l is nil
func OrDiscard(l logrus.FieldLogger) logrus.FieldLogger {
	if l != nil {
		return l
	}
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	return discard
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
