package main

import (
	"os"

	"gopkg.in/yaml.v2"
)

// fileConfig mirrors the CLI's own flag names so a --config FILE can
// pre-populate flag defaults for repeated runs against the same
// repository pair, without repeating a long command line every time.
type fileConfig struct {
	Revision   string `yaml:"revision"`
	Continue   bool   `yaml:"continue"`
	Force      bool   `yaml:"force"`
	Archive    bool   `yaml:"archive"`
	KeepAuthor bool   `yaml:"keep-author"`
	KeepDate   bool   `yaml:"keep-date"`
	KeepProp   bool   `yaml:"keep-prop"`
	KeepRevnum bool   `yaml:"keep-revnum"`
	LogAuthor  bool   `yaml:"log-author"`
	LogDate    bool   `yaml:"log-date"`
	Limit      int    `yaml:"limit"`
	DryRun     bool   `yaml:"dry-run"`
	Verify     string `yaml:"verify"`
	PreCommit  string `yaml:"pre-commit"`
	Verbosity  int    `yaml:"verbosity"`

	SkipAncestry   bool `yaml:"skip-ancestry"`
	CarryExternals bool `yaml:"carry-externals"`
}

// loadFileConfig reads and parses a YAML config file. It is only called
// when --config was given; a file that cannot be read is an error.
func loadFileConfig(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &fileConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
