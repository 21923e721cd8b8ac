// Copyright 2026 Blink Labs Software
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package logging

import (
	"log"
	"time"

	"github.com/blinklabs-io/fwversion/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger = zap.SugaredLogger

var globalLogger = zap.NewNop().Sugar()

func Setup() {
	loggerConfig, err := newLoggerConfig(config.GetConfig())
	if err != nil {
		log.Fatalf("error configuring logger: %s", err)
	}

	// Create the logger
	l, err := loggerConfig.Build()
	if err != nil {
		log.Fatal(err)
	}

	// Store the "sugared" version of the logger
	globalLogger = l.Sugar()
}

func newLoggerConfig(cfg *config.Config) (zap.Config, error) {
	// Build our custom logging config
	loggerConfig := zap.NewProductionConfig()
	// Change timestamp key name
	loggerConfig.EncoderConfig.TimeKey = "timestamp"
	// Use a human readable time format
	loggerConfig.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(
		time.RFC3339,
	)
	// Build output is for humans, and stdout may be consumed as compiler flags
	loggerConfig.Encoding = "console"
	loggerConfig.OutputPaths = []string{"stderr"}
	loggerConfig.ErrorOutputPaths = []string{"stderr"}

	// Set level
	if cfg.Logging.Level != "" {
		level, err := zapcore.ParseLevel(cfg.Logging.Level)
		if err != nil {
			return zap.Config{}, err
		}
		loggerConfig.Level.SetLevel(level)
	}
	return loggerConfig, nil
}

// GetLogger returns the global logger. It discards everything until Setup is called.
func GetLogger() *Logger {
	return globalLogger
}
