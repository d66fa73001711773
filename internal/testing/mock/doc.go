// Package mock provides in-process fakes of the external services the cart
// rules agent talks to.
//
// Storefront serves the storefront AJAX cart API from an in-memory cart, with
// failure injection and per-product call counters. RuleBackend serves the rule
// read endpoint and records execution reports. Both expose an http.Handler
// meant to be wrapped in httptest.NewServer.
//
// Clock gives tests control over time for the self-trigger suppression
// window.
package mock
