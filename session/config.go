package session

import (
	"log/slog"

	"github.com/tailored-agentic-units/orchestra/memory"
)

// Config holds session persistence parameters.
type Config struct {
	// Store selects and locates the snapshot store.
	Store memory.Config `json:"store" yaml:"store"`
	// AllowNotExistNil makes loading a missing session a no-op. Defaults to
	// true.
	AllowNotExistNil *bool `json:"allow_not_exist,omitempty" yaml:"allow_not_exist,omitempty"`
}

// DefaultConfig stores snapshots as files under ./sessions.
func DefaultConfig() Config {
	allow := true
	return Config{
		Store:            memory.Config{Backend: "file", Path: "sessions"},
		AllowNotExistNil: &allow,
	}
}

func (c *Config) AllowNotExist() bool {
	if c.AllowNotExistNil == nil {
		return true
	}
	return *c.AllowNotExistNil
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	c.Store.Merge(&source.Store)

	if source.AllowNotExistNil != nil {
		c.AllowNotExistNil = source.AllowNotExistNil
	}
}

// New creates a JSONSession from configuration.
func New(cfg *Config, logger *slog.Logger) (*JSONSession, error) {
	store, err := memory.NewStore(&cfg.Store)
	if err != nil {
		return nil, err
	}

	opts := []Option{WithAllowNotExist(cfg.AllowNotExist())}
	if logger != nil {
		opts = append(opts, WithLogger(logger))
	}
	return NewJSONSession(store, opts...), nil
}
