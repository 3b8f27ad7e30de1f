// Package config provides configuration structures for orchestration components.
//
// This package defines configuration types for message hubs, pipelines,
// workflow primitives and plan notebooks, establishing sensible defaults
// while allowing customization through JSON or YAML files.
//
// # Hub Configuration
//
// HubConfig defines settings for a MsgHub:
//
//	cfg := config.DefaultHubConfig()
//	cfg.Name = "werewolves"
//
//	h, err := hub.New(cfg, participants, hub.WithAnnouncement(msg))
//
// Name: Unique key under which participants store the hub's subscriptions.
// Empty generates a UUID v7 name.
//
// AutoBroadcast: Whether a participant's reply is delivered to every other
// participant while the hub is entered.
//
// Logger: Structured logging for membership changes and warnings.
//
// # Loading Files
//
// Load reads a single file holding every component's configuration and
// merges it over DefaultConfig:
//
//	cfg, err := config.Load("orchestra.yaml")
//
// Configuration only exists during initialization and is validated where
// it is used.
//
// # Configuration Merging
//
// Every configuration type merges a loaded value over its defaults:
//
//	cfg := config.DefaultFanoutConfig()
//	var loaded config.FanoutConfig
//	yaml.Unmarshal(data, &loaded)
//	cfg.Merge(&loaded)
//
// Merge semantics by field type:
//
//   - Strings: Merge if source is non-empty
//   - Integers: Merge if source is greater than zero
//   - Pointers: Merge if source is non-nil
//   - Nested configs: Recursive merge (Config merges each component)
//
// # Boolean Fields with Non-False Defaults
//
// Booleans that default to true are *bool fields with a Nil suffix and an
// accessor under the plain name, so a file that omits them keeps the
// default:
//
//	{"max_workers": 4}  // FailFastNil stays nil, FailFast() reports true
//
// # Sessions
//
// Config.Session carries session.Config: where snapshots are stored and
// whether loading an unknown session is an error.
//
//	session:
//	  store:
//	    backend: file
//	    path: /var/lib/orchestra/sessions
//	  allow_not_exist: false
package config
