package logging

import (
	"log/syslog"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	maxLogSizeMB  = 10
	maxLogBackups = 5
)

// Options selects the sinks for the player log.
type Options struct {
	Level     zapcore.Level
	File      string // rotating log file, empty disables
	UseSyslog bool
	Tag       string // syslog tag
	Console   bool   // mirror to stderr
}

// ParseLevel maps CLI level names onto zap levels. Unknown names fall
// back to info.
func ParseLevel(s string) zapcore.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warning", "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	}
	return zapcore.InfoLevel
}

// New builds a logger for the configured sinks. Sinks that cannot be
// opened are skipped rather than fatal; with no usable sink the logger
// is a no-op.
func New(opts Options) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	enc := zapcore.NewConsoleEncoder(encCfg)

	var cores []zapcore.Core
	if opts.File != "" {
		w := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    maxLogSizeMB,
			MaxBackups: maxLogBackups,
		}
		cores = append(cores, zapcore.NewCore(enc, zapcore.AddSync(w), opts.Level))
	}
	if opts.UseSyslog {
		if w, err := syslog.New(syslog.LOG_INFO|syslog.LOG_USER, opts.Tag); err == nil {
			cores = append(cores, zapcore.NewCore(enc, zapcore.AddSync(w), opts.Level))
		}
	}
	if opts.Console {
		cores = append(cores, zapcore.NewCore(enc, zapcore.AddSync(os.Stderr), opts.Level))
	}

	if len(cores) == 0 {
		return zap.NewNop()
	}
	return zap.New(zapcore.NewTee(cores...))
}
