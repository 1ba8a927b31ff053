// Package store is the orchestration core of livedoc: it binds live mutable
// objects to documents held by pluggable storage drivers.
//
// Open ties the driver registry, the schema validator, and one driver
// together to create or locate a document, reconstructs the live object from
// its state tree, and subscribes a watcher to the object's mutation stream.
// From then on every mutation is revalidated against the full current state
// and, if valid, written through to the driver; the caller never issues an
// explicit save. Invalid mutations are skipped, not rolled back: the
// in-memory object keeps the new value while the backend keeps the last
// valid state.
//
// Mutations are persisted as independent tasks. Two overlapping mutations of
// the same object race to the driver and the write that completes last wins;
// the engine adds no ordering beyond physical completion order.
//
// Remove is the only way a document leaves its backend. Close tears down
// every driver and every active watcher, returning the store to an
// uninitialized state.
package store
