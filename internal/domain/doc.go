// Package domain defines the core domain types for the livedoc document engine.
//
// This package contains the fundamental entities shared by every layer of the
// system: documents, queries, driver environments, and the sentinel errors the
// engine uses to classify failures.
//
// # Core Types
//
// Document is the persisted unit every driver stores: a structural state tree
// sufficient to reconstruct a live object, a flattened plain-JSON projection
// used only for equality filtering, and a driver-assigned id that never
// changes for the document's lifetime.
//
// Query is a flat field-equality filter. It is the only query form the engine
// understands; drivers may rewrite it into their native filter form through
// the QueryTransformer capability.
//
// Environment tags a driver as server-side or client-side. The driver
// registry uses the tag to decide which declared drivers to materialize for
// the current process.
package domain
