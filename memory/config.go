package memory

import "fmt"

// Config holds store initialization parameters.
type Config struct {
	// Backend selects the store: "file" or "memory".
	Backend string `json:"backend,omitempty" yaml:"backend,omitempty"`
	// Path is the FileStore root directory.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// DefaultConfig returns a file store rooted at the working directory.
func DefaultConfig() Config {
	return Config{
		Backend: "file",
		Path:    ".",
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Backend != "" {
		c.Backend = source.Backend
	}

	if source.Path != "" {
		c.Path = source.Path
	}
}

// NewStore creates a Store from configuration.
func NewStore(cfg *Config) (Store, error) {
	switch cfg.Backend {
	case "", "file":
		if cfg.Path == "" {
			return nil, fmt.Errorf("file store requires a path")
		}
		return NewFileStore(cfg.Path), nil
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.Backend)
	}
}
