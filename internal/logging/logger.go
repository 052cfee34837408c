// Package logging builds the zap loggers handed to modules. Every logger
// writes to the configured sinks and into a bounded in-memory History.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures New.
type Options struct {
	// File receives log lines, appended. Empty disables the file sink.
	File string
	// Level is a zap level name. Empty means info.
	Level string
	// History is the number of entries kept in memory.
	History int
	// Console receives log lines when set.
	Console io.Writer
}

// Logger owns the zap logger, its history and the file handle.
type Logger struct {
	zap     *zap.Logger
	history *History
	file    *os.File
}

// New creates the logger described by opts.
func New(opts Options) (*Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	history := NewHistory(opts.History)
	cores := []zapcore.Core{newHistoryCore(level, history)}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.RFC3339TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	var file *os.File
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, fmt.Errorf("logging: ensure log dir: %w", err)
		}
		file, err = os.OpenFile(opts.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("logging: open log file: %w", err)
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.AddSync(file), level))
	}
	if opts.Console != nil {
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.AddSync(opts.Console), level))
	}

	return &Logger{
		zap:     zap.New(zapcore.NewTee(cores...)),
		history: history,
		file:    file,
	}, nil
}

// Zap returns the root logger.
func (l *Logger) Zap() *zap.Logger {
	return l.zap
}

// Module returns a logger named after a module.
func (l *Logger) Module(name string) *zap.Logger {
	return l.zap.Named(name)
}

// History returns the in-memory history.
func (l *Logger) History() *History {
	return l.history
}

// Path returns the log file path, if any.
func (l *Logger) Path() string {
	if l == nil || l.file == nil {
		return ""
	}
	return l.file.Name()
}

// Close flushes the logger and releases the file handle.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	_ = l.zap.Sync()
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// ParseLevel maps a level name to a zap level.
func ParseLevel(name string) (zapcore.Level, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return zapcore.InfoLevel, nil
	}
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(name))); err != nil {
		return level, fmt.Errorf("logging: unknown level %q", name)
	}
	return level, nil
}
