package config

// NotebookConfig defines configuration for a plan notebook.
type NotebookConfig struct {
	// MaxSubtasks caps subtasks per plan (0 = unlimited)
	MaxSubtasks int `json:"max_subtasks" yaml:"max_subtasks"`

	// Storage names a registered plan storage ("memory", "sqlite", etc.)
	Storage string `json:"storage" yaml:"storage"`

	// Observer specifies which observer implementation to use ("noop", "slog", etc.)
	Observer string `json:"observer" yaml:"observer"`
}

func DefaultNotebookConfig() NotebookConfig {
	return NotebookConfig{
		MaxSubtasks: 0,
		Storage:     "memory",
		Observer:    "noop",
	}
}

func (c *NotebookConfig) Merge(source *NotebookConfig) {
	if source.MaxSubtasks > 0 {
		c.MaxSubtasks = source.MaxSubtasks
	}

	if source.Storage != "" {
		c.Storage = source.Storage
	}

	if source.Observer != "" {
		c.Observer = source.Observer
	}
}
