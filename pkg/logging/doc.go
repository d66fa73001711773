// Package logging provides subsystem-tagged structured logging for cartrules.
//
// The package wraps Go's log/slog with a small package-level API so that every
// component logs the same way without threading a logger through constructors.
//
// # Usage
//
//	logging.Init(logging.LevelInfo, logging.FormatJSON, os.Stderr)
//
//	logging.Info("Engine", "Pass complete, cart modified: %t", modified)
//	logging.Warn("CartClient", "Could not add product %s: %v", id, err)
//	logging.Error("Bootstrap", err, "Failed to load configuration")
//
// Every record carries a "subsystem" attribute and, for Error, an "error"
// attribute. Records below the configured level are dropped before formatting.
//
// # Subsystems
//
//   - Bootstrap: configuration loading and wiring
//   - RuleSource: rule fetching, caching and file watching
//   - CartClient: storefront cart reads and mutations
//   - Engine: reconciliation passes and rule actions
//   - Scheduler: signal intake, debounce and polling
//   - Telemetry: execution reports
//   - Refresh: host broadcasts and self-trigger suppression
//   - Server: HTTP and WebSocket surface
//
// Before Init is called, Debug and Info are discarded and Warn/Error go to
// stderr, which keeps packages usable from tests without setup.
package logging
