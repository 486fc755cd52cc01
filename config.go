package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultConfigFile = "concat.yaml"

// config is a project file; flags given on the command line win over it.
type config struct {
	Main     string        `yaml:"main"`
	Prelude  *bool         `yaml:"prelude"`
	Trace    bool          `yaml:"trace"`
	Timeout  time.Duration `yaml:"timeout"`
	MaxDepth int           `yaml:"max_depth"`
	Warnings warnPolicy    `yaml:"warnings"`
}

// warnPolicy says what checker warnings do to the exit status.
type warnPolicy string

const (
	warnLog    warnPolicy = "warn"
	warnError  warnPolicy = "error"
	warnIgnore warnPolicy = "ignore"
)

func (wp *warnPolicy) Set(s string) error {
	p := warnPolicy(s)
	switch p {
	case warnLog, warnError, warnIgnore:
		*wp = p
		return nil
	}
	return fmt.Errorf("invalid warning policy %q, expected warn, error or ignore", s)
}

func (wp warnPolicy) String() string {
	if wp == "" {
		return string(warnLog)
	}
	return string(wp)
}

func (wp *warnPolicy) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	if err := wp.Set(s); err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	return nil
}

func readConfig(r io.Reader) (cfg config, err error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return config{}, err
	}
	if cfg.MaxDepth < 0 {
		return config{}, fmt.Errorf("invalid max_depth %d", cfg.MaxDepth)
	}
	return cfg, nil
}

// loadConfig reads the project file at path. A missing file is only an
// error when the path was given explicitly.
func loadConfig(path string, explicit bool) (config, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) && !explicit {
		return config{}, nil
	} else if err != nil {
		return config{}, fmt.Errorf("unable to open config: %w", err)
	}
	defer f.Close()
	cfg, err := readConfig(f)
	if err != nil {
		return config{}, fmt.Errorf("unable to read config %v: %w", path, err)
	}
	return cfg, nil
}

func (cfg config) prelude() bool {
	return cfg.Prelude == nil || *cfg.Prelude
}
