package config

// ChainConfig defines configuration for ProcessChain, which backs the
// sequential pipeline.
//
//	{"capture_intermediate_states": true, "observer": "slog"}
type ChainConfig struct {
	// CaptureIntermediateStates records the state after every step in
	// ChainResult.Intermediate, starting with the initial state.
	CaptureIntermediateStates bool `json:"capture_intermediate_states" yaml:"capture_intermediate_states"`

	// Observer specifies which observer implementation to use ("noop", "slog", etc.)
	Observer string `json:"observer" yaml:"observer"`
}

// DefaultChainConfig reports to the "slog" observer and keeps only the final
// state.
func DefaultChainConfig() ChainConfig {
	return ChainConfig{
		CaptureIntermediateStates: false,
		Observer:                  "slog",
	}
}

func (c *ChainConfig) Merge(source *ChainConfig) {
	if source.CaptureIntermediateStates {
		c.CaptureIntermediateStates = source.CaptureIntermediateStates
	}

	if source.Observer != "" {
		c.Observer = source.Observer
	}
}

// ParallelConfig defines configuration for ProcessParallel, which backs
// concurrent fanout.
//
// MaxWorkers of 0 sizes the pool as min(NumCPU*2, WorkerCap, items). With
// FailFast the first failure cancels the remaining work; otherwise every
// item runs and failures are collected.
type ParallelConfig struct {
	// MaxWorkers specifies exact worker pool size (0 = auto-detect)
	MaxWorkers int `json:"max_workers" yaml:"max_workers"`

	// WorkerCap limits auto-detected workers (default: 16)
	WorkerCap int `json:"worker_cap" yaml:"worker_cap"`

	// FailFastNil controls error handling behavior. Use FailFast() method to access.
	// When nil, defaults to true. Use pointer to distinguish unset from explicit false.
	FailFastNil *bool `json:"fail_fast" yaml:"fail_fast"`

	// Observer specifies which observer implementation to use ("noop", "slog", etc.)
	Observer string `json:"observer" yaml:"observer"`
}

func (c *ParallelConfig) FailFast() bool {
	if c.FailFastNil == nil {
		return true
	}
	return *c.FailFastNil
}

// DefaultParallelConfig caps auto-sized pools at 16 workers, which suits
// agent replies that mostly wait on I/O.
func DefaultParallelConfig() ParallelConfig {
	failFast := true
	return ParallelConfig{
		MaxWorkers:  0,
		WorkerCap:   16,
		FailFastNil: &failFast,
		Observer:    "slog",
	}
}

func (c *ParallelConfig) Merge(source *ParallelConfig) {
	if source.MaxWorkers > 0 {
		c.MaxWorkers = source.MaxWorkers
	}

	if source.WorkerCap > 0 {
		c.WorkerCap = source.WorkerCap
	}

	if source.FailFastNil != nil {
		c.FailFastNil = source.FailFastNil
	}

	if source.Observer != "" {
		c.Observer = source.Observer
	}
}
