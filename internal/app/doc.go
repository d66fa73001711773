// Package app bootstraps the cartrules agent.
//
// NewApplication loads config.yaml from the configured directory, applies
// command-line overrides, validates the result and initializes logging. It then
// wires the services in InitializeServices. Nothing runs until one of the
// execution entry points is called:
//
//   - Run starts the rule watcher (file mode), the HTTP server and the
//     scheduler, notifies systemd of readiness and blocks until SIGINT, SIGTERM
//     or context cancellation, then shuts down in reverse order and flushes
//     telemetry.
//   - Check runs one forced reconciliation pass without the scheduler.
//   - Rules loads the configured rule set.
//
// # Session identity
//
// engine.sessionID (or --session-id) supplies a durable host session token.
// Without one a fresh UUID is generated per start, so once-per-session rules
// fire once per agent run.
package app
