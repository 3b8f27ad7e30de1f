package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tailored-agentic-units/orchestra/session"
)

// Config aggregates the configuration of every orchestration component.
type Config struct {
	Hub        HubConfig        `json:"hub" yaml:"hub"`
	Sequential SequentialConfig `json:"sequential" yaml:"sequential"`
	Fanout     FanoutConfig     `json:"fanout" yaml:"fanout"`
	Stream     StreamConfig     `json:"stream" yaml:"stream"`
	Chain      ChainConfig      `json:"chain" yaml:"chain"`
	Parallel   ParallelConfig   `json:"parallel" yaml:"parallel"`
	Notebook   NotebookConfig   `json:"notebook" yaml:"notebook"`
	Session    session.Config   `json:"session" yaml:"session"`
}

func DefaultConfig() Config {
	return Config{
		Hub:        DefaultHubConfig(),
		Sequential: DefaultSequentialConfig(),
		Fanout:     DefaultFanoutConfig(),
		Stream:     DefaultStreamConfig(),
		Chain:      DefaultChainConfig(),
		Parallel:   DefaultParallelConfig(),
		Notebook:   DefaultNotebookConfig(),
		Session:    session.DefaultConfig(),
	}
}

func (c *Config) Merge(source *Config) {
	c.Hub.Merge(&source.Hub)
	c.Sequential.Merge(&source.Sequential)
	c.Fanout.Merge(&source.Fanout)
	c.Stream.Merge(&source.Stream)
	c.Chain.Merge(&source.Chain)
	c.Parallel.Merge(&source.Parallel)
	c.Notebook.Merge(&source.Notebook)
	c.Session.Merge(&source.Session)
}

// Load reads a JSON or YAML file, selected by extension, and merges it over
// the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var loaded Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &loaded)
	case ".json":
		err = json.Unmarshal(data, &loaded)
	default:
		return nil, fmt.Errorf("unsupported config format: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg := DefaultConfig()
	cfg.Merge(&loaded)
	return &cfg, nil
}
