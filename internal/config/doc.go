// Package config loads the cartrules agent configuration.
//
// Configuration is read from config.yaml in a single directory, by default
// ~/.config/cartrules, overridable with --config-path. The file is decoded on
// top of GetDefaultConfig, so any field left out keeps its default. Durations
// use Go syntax ("500ms", "30s").
//
// # Example
//
//	shop: demo.myshopify.com
//	ruleSource:
//	  mode: http
//	  url: https://rules.example.com
//	cart:
//	  baseURL: https://demo.myshopify.com
//	  cookie: cart=c1-abc
//	telemetry:
//	  enabled: true
//	engine:
//	  debounce: 500ms
//	  pollInterval: 30s
//	  suppressionWindow: 1s
//	server:
//	  port: 8787
//	log:
//	  level: info
//	  format: json
//
// In file mode rules are read from ruleSource.dir and reloaded when a file
// there changes.
//
// # Validation
//
// LoadConfig only decodes. Callers apply flag overrides and then call
// Validate, which reports every problem at once as ValidationErrors. A file
// that cannot be read or decoded yields a ConfigurationError.
package config
