// Package config loads the docweave build configuration.
package config

import (
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the build configuration, loaded from config.yaml with
// environment overrides.
type Config struct {
	Project struct {
		// Source is the documentation source root.
		Source string `yaml:"source"`
		// Output is the directory rendered HTML is written into.
		Output string `yaml:"output"`
	} `yaml:"project"`
	Build struct {
		// Cache is the path of the incremental build cache database.
		Cache string `yaml:"cache"`
		// Incremental skips documents whose dependencies are unchanged.
		Incremental bool `yaml:"incremental"`
	} `yaml:"build"`
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	var cfg Config
	cfg.Project.Source = "docs"
	cfg.Project.Output = "site"
	cfg.Build.Cache = "docweave.db"
	cfg.Build.Incremental = true
	return &cfg
}

// Load reads the YAML config at path, falling back to defaults when the file
// does not exist, and applies environment variable overrides.
func Load(path string) (*Config, error) {
	// Load .env if present.
	_ = godotenv.Load()

	cfg := Default()

	file, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, err
		}
	case os.IsNotExist(err):
		// Defaults apply.
	default:
		return nil, err
	}

	if source := os.Getenv("DOCWEAVE_SOURCE"); source != "" {
		cfg.Project.Source = source
	}
	if output := os.Getenv("DOCWEAVE_OUTPUT"); output != "" {
		cfg.Project.Output = output
	}
	if cache := os.Getenv("DOCWEAVE_CACHE"); cache != "" {
		cfg.Build.Cache = cache
	}

	return cfg, nil
}
