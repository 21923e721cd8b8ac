// Copyright 2026 Blink Labs Software
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "go.uber.org/automaxprocs"

	"github.com/spf13/pflag"

	"github.com/blinklabs-io/fwversion/internal/config"
	"github.com/blinklabs-io/fwversion/internal/logging"
	"github.com/blinklabs-io/fwversion/internal/version"
)

var cmdlineFlags struct {
	configFile  string
	envFile     string
	dir         string
	format      string
	output      string
	symbol      string
	backend     string
	showVersion bool
}

func main() {
	pflag.StringVarP(
		&cmdlineFlags.configFile,
		"config",
		"c",
		"",
		"path to config file to load",
	)
	pflag.StringVar(
		&cmdlineFlags.envFile,
		"env-file",
		"",
		"path to env file to load (default .env, if present)",
	)
	pflag.StringVarP(
		&cmdlineFlags.dir,
		"dir",
		"C",
		"",
		"directory of the repository to describe (default working directory)",
	)
	pflag.StringVarP(
		&cmdlineFlags.format,
		"format",
		"f",
		"",
		"output format: flags, header or raw",
	)
	pflag.StringVarP(
		&cmdlineFlags.output,
		"output",
		"o",
		"",
		"file to write output to (default stdout)",
	)
	pflag.StringVar(
		&cmdlineFlags.symbol,
		"symbol",
		"",
		"name of the version definition",
	)
	pflag.StringVar(
		&cmdlineFlags.backend,
		"backend",
		"",
		"describe backend: git or native",
	)
	pflag.BoolVar(
		&cmdlineFlags.showVersion,
		"version",
		false,
		"show fwversion version and exit",
	)
	pflag.Parse()

	if cmdlineFlags.showVersion {
		fmt.Printf("fwversion %s\n", version.GetVersionString())
		os.Exit(0)
	}

	// Load config
	cfg, err := config.Load(cmdlineFlags.configFile, cmdlineFlags.envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %s\n", err)
		os.Exit(1)
	}
	if err := applyFlags(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid arguments: %s\n", err)
		os.Exit(1)
	}

	// Configure logging
	logging.Setup()
	logger := logging.GetLogger()
	// Sync logger on exit
	defer func() {
		if err := logger.Sync(); err != nil {
			// stderr can't always be synced, and there's nothing left to do about it
			return
		}
	}()

	logger.Debugf("fwversion %s started", version.GetVersionString())

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	if err := run(ctx, cfg, os.Stdout); err != nil {
		logger.Fatalf("failed to publish version: %s", err)
	}
}

// applyFlags overrides config values with explicitly set flags
func applyFlags(cfg *config.Config) error {
	overrides := []struct {
		name  string
		value string
		dest  *string
	}{
		{"dir", cmdlineFlags.dir, &cfg.Version.Dir},
		{"format", cmdlineFlags.format, &cfg.Output.Format},
		{"output", cmdlineFlags.output, &cfg.Output.File},
		{"symbol", cmdlineFlags.symbol, &cfg.Output.Symbol},
		{"backend", cmdlineFlags.backend, &cfg.Version.Backend},
	}
	for _, override := range overrides {
		if pflag.CommandLine.Changed(override.name) {
			*override.dest = override.value
		}
	}
	return cfg.Validate()
}
