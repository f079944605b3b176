// pkg/logger/logger.go

package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var log *zap.Logger

// LogDir is where per-run log files are written, mirroring the campaign
// scripts that always logged next to the working directory.
const LogDir = "./logs"

// L returns the process-wide logger.
func L() *zap.Logger {
	return log
}

// NewFallbackLogger builds a console-only logger for when no writable log
// path is available.
func NewFallbackLogger() *zap.Logger {
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(DefaultConsoleEncoderConfig()),
		zapcore.Lock(os.Stdout),
		ParseLogLevel(os.Getenv("LOG_LEVEL")),
	)
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
}

// InitializeWithFallback sets up the dual-sink logger: console at Info and a
// date-prefixed file at Debug. If the file sink cannot be created we degrade
// to console-only rather than refusing to run.
func InitializeWithFallback(logName string) {
	path, err := ensureLogFile(logName)
	if err != nil {
		fmt.Fprintln(os.Stderr, "no writable log path found, logging to console only:", err)
		log = NewFallbackLogger()
		zap.ReplaceGlobals(log)
		return
	}

	writer, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintln(os.Stderr, "could not open log file, logging to console only:", err)
		log = NewFallbackLogger()
		zap.ReplaceGlobals(log)
		return
	}

	jsonCfg := zap.NewProductionEncoderConfig()
	jsonCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	jsonCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewConsoleEncoder(DefaultConsoleEncoderConfig()), zapcore.Lock(os.Stdout), zap.InfoLevel),
		zapcore.NewCore(zapcore.NewJSONEncoder(jsonCfg), zapcore.AddSync(writer), zap.DebugLevel),
	)

	log = zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	zap.ReplaceGlobals(log)
	log.Debug("Logger initialized", zap.String("log_path", path))
}

// DefaultConsoleEncoderConfig is the human-facing encoder used on stdout.
func DefaultConsoleEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return cfg
}

// ParseLogLevel maps a LOG_LEVEL string to a zap level, defaulting to Info.
func ParseLogLevel(s string) zapcore.Level {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

// SafeSync flushes the logger. Sync errors on stdout are expected on some
// platforms and ignored.
func SafeSync() {
	if log != nil {
		_ = log.Sync()
	}
}

// ensureLogFile creates ./logs if needed and returns the date-prefixed log
// file path, e.g. ./logs/2026-08-26-reenroll.log.
func ensureLogFile(logName string) (string, error) {
	if logName == "" {
		logName = "reenroll.log"
	}
	if err := os.MkdirAll(LogDir, 0o755); err != nil {
		return "", err
	}
	date := time.Now().Format("2006-01-02")
	return filepath.Join(LogDir, fmt.Sprintf("%s-%s", date, logName)), nil
}
