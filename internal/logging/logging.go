// Package logging builds the zap-backed logr.Logger used across the tool.
package logging

import (
	"fmt"
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the zap preset and level.
type Config struct {
	Level       string // debug, info, warn, error
	Development bool   // console encoder, caller and stack traces on warn
	Format      string // "json" or "console"; empty follows Development
}

// ParseLevel maps a level name to a zap level. Unknown names yield info.
// "debug" enables logr V(1) output.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	}
	return zapcore.InfoLevel
}

// New returns a logger and a flush function to call before exit.
func New(cfg Config) (logr.Logger, func(), error) {
	var zc zap.Config
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	zc.Level = zap.NewAtomicLevelAt(ParseLevel(cfg.Level))
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}

	switch cfg.Format {
	case "":
	case "json", "console":
		zc.Encoding = cfg.Format
	default:
		return logr.Discard(), func() {}, fmt.Errorf("logging: unknown format %q", cfg.Format)
	}

	zl, err := zc.Build()
	if err != nil {
		return logr.Discard(), func() {}, fmt.Errorf("logging: build logger: %w", err)
	}
	flush := func() { _ = zl.Sync() }
	return zapr.NewLogger(zl), flush, nil
}
