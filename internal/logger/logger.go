// Package logger is the process-wide printf-style logger. It wraps a zap
// SugaredLogger and optionally rotates a log file through lumberjack.
package logger

import (
	"os"
	"strings"
	"sync"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config mirrors the [log] section of the config file.
type Config struct {
	Level      string `toml:"level"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
	Console    bool   `toml:"console"`
}

var (
	mu    sync.RWMutex
	level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	sugar = newConsole(level)
)

func newConsole(lvl zapcore.LevelEnabler) *zap.SugaredLogger {
	core := zapcore.NewCore(consoleEncoder(), zapcore.Lock(os.Stderr), lvl)
	return zap.New(core).Sugar()
}

func consoleEncoder() zapcore.Encoder {
	enc := zap.NewDevelopmentEncoderConfig()
	enc.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	enc.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewConsoleEncoder(enc)
}

func fileEncoder() zapcore.Encoder {
	enc := zap.NewProductionEncoderConfig()
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewJSONEncoder(enc)
}

// ParseLevel maps a level name to a zap level; unknown names fall back to info.
func ParseLevel(s string) zapcore.Level {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(s)))); err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

// Init replaces the global logger. With no file configured it logs to the
// console regardless of cfg.Console.
func Init(cfg Config) {
	lvl := zap.NewAtomicLevelAt(ParseLevel(cfg.Level))
	var cores []zapcore.Core
	if path := strings.TrimSpace(cfg.File); path != "" {
		w := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
			LocalTime:  true,
		}
		cores = append(cores, zapcore.NewCore(fileEncoder(), zapcore.AddSync(w), lvl))
	}
	if cfg.Console || len(cores) == 0 {
		cores = append(cores, zapcore.NewCore(consoleEncoder(), zapcore.Lock(os.Stderr), lvl))
	}
	l := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()

	mu.Lock()
	old := sugar
	sugar, level = l, lvl
	mu.Unlock()
	_ = old.Sync()
}

// SetLevel changes the level of the current logger.
func SetLevel(s string) {
	mu.RLock()
	defer mu.RUnlock()
	level.SetLevel(ParseLevel(s))
}

// Enabled reports whether messages at s would be written.
func Enabled(s string) bool {
	mu.RLock()
	defer mu.RUnlock()
	return sugar.Desugar().Core().Enabled(ParseLevel(s))
}

func current() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

func Debugf(format string, args ...any) { current().Debugf(format, args...) }
func Infof(format string, args ...any)  { current().Infof(format, args...) }
func Warnf(format string, args ...any)  { current().Warnf(format, args...) }
func Errorf(format string, args ...any) { current().Errorf(format, args...) }

// Sync flushes buffered file output.
func Sync() error { return current().Sync() }
