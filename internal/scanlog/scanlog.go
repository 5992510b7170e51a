// SPDX-License-Identifier: MIT
// Copyright (c) 2026 kestrelfs
// Source: github.com/kestrelfs/romfs3

// Package scanlog builds the zap logger handed to romfs3.BuildOptions.Logger
// by the CLI.
package scanlog

import (
	"fmt"

	"go.uber.org/zap"
)

var logger *zap.Logger

// New builds a sugared logger writing to stderr at info level, or debug
// level when debug is true. The logger is built on the first call only;
// later calls return it unchanged, whatever debug they pass.
func New(debug bool) *zap.SugaredLogger {
	if logger == nil {
		config := zap.NewDevelopmentConfig()
		if !debug {
			config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
		}
		config.OutputPaths = []string{"stderr"}
		config.ErrorOutputPaths = []string{"stderr"}

		built, err := config.Build()
		if err != nil {
			fmt.Printf("failed to create logger: %v\n", err)
			built = zap.NewNop()
		}

		logger = built
	}

	return logger.Sugar()
}

// Sync flushes any buffered log entries. Call it with defer from main.
func Sync() {
	if logger != nil {
		_ = logger.Sync()
	}
}
