// Package rulesource loads merchant cart rules and caches them per shop.
//
// Two backends implement Source: HTTPSource reads the rule backend's JSON
// endpoint and FileSource reads a directory of YAML files. Cache sits in front
// of either and guarantees a single fetch per shop until it is invalidated;
// failed fetches are not cached. Watcher invalidates the cache when a file in
// the rule directory changes.
package rulesource
