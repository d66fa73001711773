// Package server exposes the agent over HTTP: signal intake from host pages,
// the refresh WebSocket, manual reconciliation, rule reloads, status, health
// and Prometheus metrics.
package server
