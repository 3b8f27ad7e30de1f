package config

import (
	"log/slog"
)

// HubConfig defines configuration for a MsgHub instance.
type HubConfig struct {
	// Hub identity. Empty generates a unique name at construction.
	Name string `json:"name" yaml:"name"`

	// AutoBroadcastNil controls mutual subscription among participants.
	// Use AutoBroadcast() to access; nil defaults to true.
	AutoBroadcastNil *bool `json:"auto_broadcast" yaml:"auto_broadcast"`

	// Observer specifies which observer implementation to use ("noop", "slog", etc.)
	Observer string `json:"observer" yaml:"observer"`

	// Observability
	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *HubConfig) AutoBroadcast() bool {
	if c.AutoBroadcastNil == nil {
		return true
	}
	return *c.AutoBroadcastNil
}

// DefaultHubConfig returns a HubConfig with sensible defaults.
func DefaultHubConfig() HubConfig {
	autoBroadcast := true
	return HubConfig{
		Name:             "",
		AutoBroadcastNil: &autoBroadcast,
		Observer:         "noop",
		Logger:           slog.Default(),
	}
}

func (c *HubConfig) Merge(source *HubConfig) {
	if source.Name != "" {
		c.Name = source.Name
	}

	if source.AutoBroadcastNil != nil {
		c.AutoBroadcastNil = source.AutoBroadcastNil
	}

	if source.Observer != "" {
		c.Observer = source.Observer
	}

	if source.Logger != nil {
		c.Logger = source.Logger
	}
}
