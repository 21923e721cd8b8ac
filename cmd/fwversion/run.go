// Copyright 2026 Blink Labs Software
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/blinklabs-io/fwversion/internal/buildenv"
	"github.com/blinklabs-io/fwversion/internal/config"
	"github.com/blinklabs-io/fwversion/internal/logging"
	"github.com/blinklabs-io/fwversion/internal/resolver"
)

// run resolves the version, publishes it into a build environment seeded with the
// configured defines, and writes the rendered result to the output file or stdout
func run(ctx context.Context, cfg *config.Config, stdout io.Writer) error {
	logger := logging.GetLogger()

	// Pre-existing definitions of the build environment
	env := buildenv.New()
	for _, raw := range cfg.Output.Defines {
		define, err := buildenv.ParseDefine(raw)
		if err != nil {
			return err
		}
		if err := env.Append(define); err != nil {
			return err
		}
	}

	var describer resolver.Describer
	switch cfg.Version.Backend {
	case config.BackendNative:
		describer = resolver.NewNativeDescriber()
	default:
		describer = resolver.NewGitDescriber(cfg.Version.GitBinary)
	}
	r := resolver.New(
		resolver.WithDescriber(describer),
		resolver.WithDir(cfg.Version.Dir),
		resolver.WithTimeout(cfg.Version.Timeout),
		resolver.WithLogger(logger),
	)
	fwVersion := r.Resolve(ctx)

	if err := buildenv.Publish(env, cfg.Output.Symbol, fwVersion); err != nil {
		return err
	}

	var data []byte
	switch cfg.Output.Format {
	case config.FormatHeader:
		data = env.RenderHeader(buildenv.HeaderGuard(cfg.Output.File))
	case config.FormatRaw:
		data = []byte(fwVersion + "\n")
	default:
		data = env.RenderFlags()
	}

	if cfg.Output.File == "" {
		if _, err := stdout.Write(data); err != nil {
			return fmt.Errorf("error writing output: %w", err)
		}
		return nil
	}
	wrote, err := buildenv.WriteFile(cfg.Output.File, data)
	if err != nil {
		return err
	}
	if wrote {
		logger.Infof("wrote %s", cfg.Output.File)
	} else {
		logger.Debugf("%s is up to date", cfg.Output.File)
	}
	return nil
}
