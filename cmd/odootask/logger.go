package main

import (
	"io"
	"log/slog"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/npratt/odootask/internal/config"
)

// LoggerResult contains the results of setting up logging.
type LoggerResult struct {
	Logger   *slog.Logger
	LogFile  io.WriteCloser
	FilePath string
}

// Close closes the log file if it was opened.
func (r *LoggerResult) Close() error {
	if r.LogFile != nil {
		return r.LogFile.Close()
	}
	return nil
}

// SetupFileLogger creates a logger that writes JSON lines to a rotating file at path,
// keeping stdout free for outcomes and stderr quiet.
// Uses lumberjack for automatic log rotation based on the provided config.
func SetupFileLogger(path string, level slog.Leveler, rotationCfg config.LogRotationConfig) *LoggerResult {
	writer := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    rotationCfg.MaxSizeMB,
		MaxBackups: rotationCfg.MaxBackups,
		MaxAge:     rotationCfg.MaxAgeDays,
		Compress:   rotationCfg.Compress,
	}

	return &LoggerResult{
		Logger:   slog.New(slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: level})),
		LogFile:  writer,
		FilePath: path,
	}
}

// SetupLoggerWithWriter creates a logger that writes to the given writer.
func SetupLoggerWithWriter(w io.Writer, level slog.Leveler) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}
