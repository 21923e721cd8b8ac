// Copyright 2026 Blink Labs Software
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/blinklabs-io/fwversion/internal/buildenv"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

const (
	BackendGit    = "git"
	BackendNative = "native"

	FormatFlags  = "flags"
	FormatHeader = "header"
	FormatRaw    = "raw"

	defaultEnvFile = ".env"
)

type Config struct {
	Logging LoggingConfig `yaml:"logging"`
	Version VersionConfig `yaml:"version"`
	Output  OutputConfig  `yaml:"output"`
}

type LoggingConfig struct {
	Level string `yaml:"level" envconfig:"LOGGING_LEVEL"`
}

type VersionConfig struct {
	Dir       string        `yaml:"dir"       envconfig:"VERSION_DIR"`
	Backend   string        `yaml:"backend"   envconfig:"VERSION_BACKEND"`
	GitBinary string        `yaml:"gitBinary" envconfig:"VERSION_GIT_BINARY"`
	Timeout   time.Duration `yaml:"timeout"   envconfig:"VERSION_TIMEOUT"`
}

type OutputConfig struct {
	Symbol  string   `yaml:"symbol"  envconfig:"OUTPUT_SYMBOL"`
	Format  string   `yaml:"format"  envconfig:"OUTPUT_FORMAT"`
	File    string   `yaml:"file"    envconfig:"OUTPUT_FILE"`
	Defines []string `yaml:"defines" envconfig:"OUTPUT_DEFINES"`
}

// Singleton config instance with default values
var globalConfig = newDefaultConfig()

func newDefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level: "info",
		},
		Version: VersionConfig{
			Backend:   BackendGit,
			GitBinary: "git",
			Timeout:   10 * time.Second,
		},
		Output: OutputConfig{
			Symbol: "APP_VERSION",
			Format: FormatFlags,
		},
	}
}

// Load builds the global config from defaults, an optional dotenv file, an optional
// YAML config file and the environment, in that order of increasing precedence.
// An empty envFile means ".env" in the working directory, which may be absent.
func Load(configFile string, envFile string) (*Config, error) {
	if err := loadEnvFile(envFile); err != nil {
		return nil, err
	}
	// Load config file as YAML if provided
	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		err = yaml.Unmarshal(buf, globalConfig)
		if err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}
	// Load config values from environment variables
	// We use "dummy" as the app name here to (mostly) prevent picking up env
	// vars that we hadn't explicitly specified in annotations above
	err := envconfig.Process("dummy", globalConfig)
	if err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}
	if err := globalConfig.Validate(); err != nil {
		return nil, err
	}
	return globalConfig, nil
}

func loadEnvFile(envFile string) error {
	explicit := envFile != ""
	if !explicit {
		envFile = defaultEnvFile
	}
	if err := godotenv.Load(envFile); err != nil {
		// The default file is optional
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("error loading env file: %w", err)
	}
	return nil
}

// Validate checks values that can't be expressed by the config types alone
func (c *Config) Validate() error {
	switch c.Version.Backend {
	case BackendGit, BackendNative:
	default:
		return fmt.Errorf(
			"unknown version backend: %s: available backends: %s",
			c.Version.Backend,
			strings.Join([]string{BackendGit, BackendNative}, ","),
		)
	}
	switch c.Output.Format {
	case FormatFlags, FormatHeader, FormatRaw:
	default:
		return fmt.Errorf(
			"unknown output format: %s: available formats: %s",
			c.Output.Format,
			strings.Join([]string{FormatFlags, FormatHeader, FormatRaw}, ","),
		)
	}
	if c.Output.Symbol == "" {
		return errors.New("output symbol must not be empty")
	}
	if !buildenv.ValidName(c.Output.Symbol) {
		return fmt.Errorf("invalid output symbol: %q", c.Output.Symbol)
	}
	for _, raw := range c.Output.Defines {
		if _, err := buildenv.ParseDefine(raw); err != nil {
			return fmt.Errorf("invalid output define: %w", err)
		}
	}
	if c.Version.Timeout <= 0 {
		return fmt.Errorf("invalid version timeout: %s", c.Version.Timeout)
	}
	return nil
}

// GetConfig returns the global config instance
func GetConfig() *Config {
	return globalConfig
}

// Reset restores the global config to its defaults
func Reset() {
	globalConfig = newDefaultConfig()
}
