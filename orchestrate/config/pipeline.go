package config

// SequentialConfig defines configuration for the sequential pipeline.
type SequentialConfig struct {
	// Observer specifies which observer implementation to use ("noop", "slog", etc.)
	Observer string `json:"observer" yaml:"observer"`
}

func DefaultSequentialConfig() SequentialConfig {
	return SequentialConfig{
		Observer: "noop",
	}
}

func (c *SequentialConfig) Merge(source *SequentialConfig) {
	if source.Observer != "" {
		c.Observer = source.Observer
	}
}

// FanoutConfig defines configuration for the fanout pipeline.
//
// Concurrent fanout launches one worker per agent. Serial fanout invokes
// agents one at a time in list order and stops at the first failure.
type FanoutConfig struct {
	// ConcurrentNil selects concurrent execution. Use Concurrent() to access.
	// When nil, defaults to true.
	ConcurrentNil *bool `json:"concurrent" yaml:"concurrent"`

	// MaxWorkers bounds concurrent replies (0 = one worker per agent)
	MaxWorkers int `json:"max_workers" yaml:"max_workers"`

	// Observer specifies which observer implementation to use ("noop", "slog", etc.)
	Observer string `json:"observer" yaml:"observer"`
}

func (c *FanoutConfig) Concurrent() bool {
	if c.ConcurrentNil == nil {
		return true
	}
	return *c.ConcurrentNil
}

func DefaultFanoutConfig() FanoutConfig {
	concurrent := true
	return FanoutConfig{
		ConcurrentNil: &concurrent,
		MaxWorkers:    0,
		Observer:      "noop",
	}
}

func (c *FanoutConfig) Merge(source *FanoutConfig) {
	if source.ConcurrentNil != nil {
		c.ConcurrentNil = source.ConcurrentNil
	}

	if source.MaxWorkers > 0 {
		c.MaxWorkers = source.MaxWorkers
	}

	if source.Observer != "" {
		c.Observer = source.Observer
	}
}

// StreamConfig defines configuration for streaming printed messages out of
// a running task.
type StreamConfig struct {
	// QueueSize is the capacity of the shared print queue (default: 100)
	QueueSize int `json:"queue_size" yaml:"queue_size"`

	// Observer specifies which observer implementation to use ("noop", "slog", etc.)
	Observer string `json:"observer" yaml:"observer"`
}

func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		QueueSize: 100,
		Observer:  "noop",
	}
}

func (c *StreamConfig) Merge(source *StreamConfig) {
	if source.QueueSize > 0 {
		c.QueueSize = source.QueueSize
	}

	if source.Observer != "" {
		c.Observer = source.Observer
	}
}
