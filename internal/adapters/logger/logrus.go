// Package logger provides the logrus-based implementation of ports.Logger.
package logger

import (
	"context"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger implements the ports.Logger interface using logrus.
type Logger struct {
	log *logrus.Logger
}

// Config holds configuration for the logger.
type Config struct {
	Level    string // debug|info|warn|error, defaults to info
	FilePath string // When set, logs are also written to a rotated file
	MaxSize  int    // Max megabytes per log file before rotation (default 10)
	Backups  int    // Rotated files to keep (default 3)
}

// New creates a new logger. Output goes to stderr, plus a size-rotated file
// when FilePath is configured.
func New(cfg Config) *Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	var out io.Writer = os.Stderr
	if cfg.FilePath != "" {
		maxSize := cfg.MaxSize
		if maxSize <= 0 {
			maxSize = 10
		}
		backups := cfg.Backups
		if backups <= 0 {
			backups = 3
		}
		out = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    maxSize,
			MaxBackups: backups,
		})
	}
	l.SetOutput(out)

	return &Logger{log: l}
}

func toFields(fields []map[string]interface{}) logrus.Fields {
	if len(fields) == 0 || fields[0] == nil {
		return nil
	}
	return logrus.Fields(fields[0])
}

// Debug logs a message at Debug level.
func (l *Logger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {
	l.log.WithFields(toFields(fields)).Debug(msg)
}

// Info logs a message at Info level.
func (l *Logger) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {
	l.log.WithFields(toFields(fields)).Info(msg)
}

// Warn logs a message at Warning level.
func (l *Logger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	l.log.WithFields(toFields(fields)).Warn(msg)
}

// Error logs an error message at Error level.
func (l *Logger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	l.log.WithFields(toFields(fields)).WithError(err).Error(msg)
}
