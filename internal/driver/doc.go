// Package driver defines the storage capability contract and the registry
// that materializes pluggable backends.
//
// Every backend implements Driver against encoded snapshots; optional
// capabilities (query rewriting, close hooks) are separate interfaces a
// driver explicitly implements, never probed by method presence on dynamic
// values. Drivers are declared in a static Registration table and resolved
// once at startup; the Registry gates them by declared environment and
// reports per-driver init success so one broken backend never takes the
// others down.
package driver
