package config

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger contains node logger configuration.
type Logger struct {
	LogEncoding  string `yaml:"LogEncoding"`
	LogLevel     string `yaml:"LogLevel"`
	LogPath      string `yaml:"LogPath"`
	LogTimestamp *bool  `yaml:"LogTimestamp,omitempty"`
}

// Validate returns an error if Logger configuration is not valid.
func (l Logger) Validate() error {
	if len(l.LogEncoding) > 0 && l.LogEncoding != "console" && l.LogEncoding != "json" {
		return fmt.Errorf("invalid LogEncoding: %s", l.LogEncoding)
	}
	if len(l.LogLevel) > 0 {
		if _, err := zapcore.ParseLevel(l.LogLevel); err != nil {
			return fmt.Errorf("invalid LogLevel: %w", err)
		}
	}
	return nil
}

// NewZapLogger builds a zap logger from the configuration.
func NewZapLogger(l Logger) (*zap.Logger, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}

	cc := zap.NewProductionConfig()
	cc.DisableCaller = true
	cc.DisableStacktrace = true
	cc.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	cc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cc.Encoding = "console"
	cc.Sampling = nil

	if l.LogEncoding != "" {
		cc.Encoding = l.LogEncoding
	}
	if l.LogLevel != "" {
		level, err := zapcore.ParseLevel(l.LogLevel)
		if err != nil {
			return nil, err
		}
		cc.Level = zap.NewAtomicLevelAt(level)
	}
	if l.LogPath != "" {
		cc.OutputPaths = []string{l.LogPath}
	}
	if l.LogTimestamp != nil && !*l.LogTimestamp {
		cc.EncoderConfig.TimeKey = ""
	}

	return cc.Build()
}
