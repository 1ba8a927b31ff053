package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"livedoc/internal/codec"
	"livedoc/internal/domain"
	"livedoc/internal/driver"
	"livedoc/internal/live"
	"livedoc/internal/validator"
)

// Store owns the driver registry, the schema validator, and the set of
// active watchers. It replaces what would otherwise be module-level
// singleton state: every operation goes through an explicit Store.
type Store struct {
	registry  *driver.Registry
	validator *validator.Registry
	watchers  *watcherSet
	log       *slog.Logger
}

// New creates a store over an initialized driver registry.
func New(registry *driver.Registry, val *validator.Registry, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		registry:  registry,
		validator: val,
		watchers:  newWatcherSet(),
		log:       log,
	}
}

// Validator exposes the schema registry so embedders can register
// collection schemas.
func (s *Store) Validator() *validator.Registry {
	return s.validator
}

// DriverStatus reports per-driver init success.
func (s *Store) DriverStatus() map[string]bool {
	return s.registry.StatusMap()
}

// Open creates or locates a document and returns the live object bound to
// it.
//
// The query selects an existing document by field equality against its
// flattened state. An empty query always creates a new document from
// initial. A non-empty query looks the document up first; on a miss, a
// non-nil initial creates the document (create-on-miss) while a nil initial
// fails with domain.ErrNotFound and creates nothing.
//
// The initial value is validated against the collection's schema before the
// driver is contacted, on lookups as well as creates. A create with no
// initial value validates the empty state it would store. The returned
// object is already being watched: every subsequent mutation is revalidated
// and, when valid, persisted through the driver.
func (s *Store) Open(ctx context.Context, driverName, collection string, query domain.Query, initial map[string]any) (*live.Object, error) {
	drv, err := s.registry.Get(driverName)
	if err != nil {
		return nil, err
	}

	// An empty query always creates, so a nil initial value still becomes a
	// stored document. Validate whatever state the create would write; only a
	// pure lookup (non-empty query, nil initial) has nothing to check.
	if initial != nil || query.IsEmpty() {
		state := initial
		if state == nil {
			state = map[string]any{}
		}
		if err := s.validator.Validate(ctx, collection, state); err != nil {
			s.log.Warn("initial value rejected by schema",
				"collection", collection, "driver", driverName, "error", err)
			return nil, err
		}
	}

	if qt, ok := drv.(driver.QueryTransformer); ok {
		query = qt.TransformQuery(query)
	}

	doc, err := s.locateOrCreate(ctx, drv, driverName, collection, query, initial)
	if err != nil {
		return nil, err
	}

	if !doc.Valid() {
		return nil, fmt.Errorf("driver %q returned a partial document for collection %q: %w",
			driverName, collection, domain.ErrMalformedDocument)
	}

	fields, err := codec.DecodeObject(doc.Tree)
	if err != nil {
		return nil, fmt.Errorf("driver %q returned an undecodable state tree: %w: %w",
			driverName, domain.ErrMalformedDocument, err)
	}

	obj := live.New(doc.ID, fields)
	s.bind(drv, driverName, collection, obj)

	s.log.Info("document bound", "driver", driverName, "collection", collection, "id", doc.ID)
	return obj, nil
}

func (s *Store) locateOrCreate(ctx context.Context, drv driver.Driver, driverName, collection string, query domain.Query, initial map[string]any) (*domain.Document, error) {
	if query.IsEmpty() {
		return s.create(ctx, drv, driverName, collection, initial)
	}

	doc, err := drv.Query(ctx, collection, query)
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("driver %q: query collection %q: %w", driverName, collection, err)
	}

	if initial == nil {
		s.log.Debug("lookup missed with no fallback value",
			"driver", driverName, "collection", collection)
		return nil, domain.ErrNotFound
	}
	return s.create(ctx, drv, driverName, collection, initial)
}

func (s *Store) create(ctx context.Context, drv driver.Driver, driverName, collection string, initial map[string]any) (*domain.Document, error) {
	tree := codec.EncodeObject(initial)
	doc, err := drv.Create(ctx, collection, tree, codec.Flatten(tree))
	if err != nil {
		return nil, fmt.Errorf("driver %q: create in collection %q: %w", driverName, collection, err)
	}
	documentsCreated(driverName).Inc()
	return doc, nil
}

// bind subscribes the engine's single watcher to the object and registers
// its cancellation handle.
func (s *Store) bind(drv driver.Driver, driverName, collection string, obj *live.Object) {
	sub := obj.Watch()
	s.watchers.add(sub)

	go func() {
		for range sub.Events() {
			// Each mutation persists as its own task; overlapping writes
			// race and the last to complete wins.
			go s.persist(drv, driverName, collection, obj)
		}
	}()
}

// persist revalidates the object's entire current state and writes it
// through. A validation failure skips the write and leaves the in-memory
// object as mutated; the backend keeps the last valid state.
func (s *Store) persist(drv driver.Driver, driverName, collection string, obj *live.Object) {
	ctx := context.Background()
	state := obj.Snapshot()

	if err := s.validator.Validate(ctx, collection, state); err != nil {
		mutationsSkipped(driverName).Inc()
		s.log.Warn("mutation failed revalidation, write skipped",
			"driver", driverName, "collection", collection, "id", obj.ID(), "error", err)
		return
	}

	tree := codec.EncodeObject(state)
	if err := drv.Update(ctx, collection, obj.ID(), tree, codec.Flatten(tree)); err != nil {
		s.log.Error("persist failed",
			"driver", driverName, "collection", collection, "id", obj.ID(), "error", err)
		return
	}
	mutationsPersisted(driverName).Inc()
}

// Remove looks up a single document by query and deletes it, returning the
// removed document's id and whether a document was removed. Every failure on
// the way is logged and mapped to a false result, never propagated.
func (s *Store) Remove(ctx context.Context, driverName, collection string, query domain.Query) (string, bool) {
	drv, err := s.registry.Get(driverName)
	if err != nil {
		s.log.Error("remove: driver unavailable", "driver", driverName, "error", err)
		return "", false
	}

	if qt, ok := drv.(driver.QueryTransformer); ok {
		query = qt.TransformQuery(query)
	}

	doc, err := drv.Query(ctx, collection, query)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.log.Debug("remove: no matching document", "driver", driverName, "collection", collection)
		} else {
			s.log.Error("remove: lookup failed", "driver", driverName, "collection", collection, "error", err)
		}
		return "", false
	}

	removed, err := drv.Remove(ctx, collection, doc.ID)
	if err != nil {
		s.log.Error("remove: delete failed",
			"driver", driverName, "collection", collection, "id", doc.ID, "error", err)
		return "", false
	}
	if !removed {
		return "", false
	}
	documentsRemoved(driverName).Inc()
	return doc.ID, true
}

// Close shuts the store down: driver close hooks first, then every active
// watcher's cancellation handle, tolerating individual failures throughout.
// In-flight persistence writes are not waited for.
func (s *Store) Close(ctx context.Context) {
	s.registry.Close(ctx)
	s.watchers.cancelAll()
	s.log.Info("store closed")
}
