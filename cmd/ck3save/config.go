package main

import (
	"os"

	"github.com/cockroachdb/errors"
	"go.yaml.in/yaml/v2"
)

// fileConfig holds defaults an invocation can pick up from --config,
// so a caller running many files doesn't have to repeat --dict and
// --on-failed-resolve on every invocation. The core packages take no
// global configuration; this is purely a CLI-layer convenience.
type fileConfig struct {
	DictPath        string `yaml:"dict_path"`
	DictEnv         string `yaml:"dict_env"`
	OnFailedResolve string `yaml:"on_failed_resolve"`
}

func loadFileConfig(path string) (fileConfig, error) {
	var cfg fileConfig
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "reading config %q", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parsing config %q", path)
	}
	return cfg, nil
}
