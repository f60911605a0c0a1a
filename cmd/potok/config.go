package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/OJezu/potok/pkg/potok"
)

// fileConfig is the layout of the --config file:
//
//	transform: upper
//	node:
//	  name: lines
//	  pass_nulls: true
type fileConfig struct {
	Transform string         `yaml:"transform"`
	Node      map[string]any `yaml:"node"`
}

func loadConfig(path string) (fileConfig, potok.Options, error) {
	var fc fileConfig
	if path == "" {
		return fc, potok.Options{}, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fc, potok.Options{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fc, potok.Options{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	opts, err := potok.DecodeOptions(fc.Node)
	if err != nil {
		return fc, potok.Options{}, fmt.Errorf("config %s: %w", path, err)
	}
	return fc, opts, nil
}
