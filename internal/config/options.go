package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Options holds runtime settings for the VM, loadable from glyph.yaml.
type Options struct {
	// MaxIterations bounds the VM dispatch loop. Zero means the default.
	MaxIterations int `yaml:"max_iterations,omitempty"`

	// StorePath is the SQLite database behind the persist/query opcodes.
	// Empty means an in-memory database private to the VM instance.
	StorePath string `yaml:"store_path,omitempty"`

	// Trace enables instruction tracing on the VM's output writer.
	Trace bool `yaml:"trace,omitempty"`
}

// DefaultOptions returns the settings used when no glyph.yaml is present.
func DefaultOptions() Options {
	return Options{MaxIterations: DefaultMaxIterations}
}

// LoadOptions reads an Options YAML file. Unset fields fall back to defaults.
func LoadOptions(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, fmt.Errorf("read options: %w", err)
	}
	opts := DefaultOptions()
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return Options{}, fmt.Errorf("parse options %s: %w", path, err)
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultMaxIterations
	}
	return opts, nil
}
