package driver

import (
	"context"
	"log/slog"

	"livedoc/internal/codec"
	"livedoc/internal/domain"
)

// Driver is the storage capability contract every backend satisfies. The
// engine hands drivers fully encoded snapshots; drivers never see live
// objects and never run validation.
type Driver interface {
	// Create persists a new document from a snapshot and assigns its id.
	// The returned document carries the stored tree and the new id.
	Create(ctx context.Context, collection string, tree *codec.Node, flat map[string]any) (*domain.Document, error)

	// Query returns the first document in the collection matching the
	// field-equality query, or domain.ErrNotFound.
	Query(ctx context.Context, collection string, query domain.Query) (*domain.Document, error)

	// Update replaces the stored state of an existing document. The id is
	// never changed by an update.
	Update(ctx context.Context, collection, id string, tree *codec.Node, flat map[string]any) error

	// Remove deletes a document, reporting whether anything was deleted.
	Remove(ctx context.Context, collection, id string) (bool, error)
}

// QueryTransformer is an optional capability: a driver that stores documents
// in a native form may rewrite the generic field-equality query into its own
// filter form before Query sees it. Drivers without it get the query as-is.
type QueryTransformer interface {
	TransformQuery(query domain.Query) domain.Query
}

// Closer is an optional capability for drivers holding external resources.
// Close is invoked once, at registry shutdown.
type Closer interface {
	Close() error
}

// Factory constructs a driver instance from its configured settings.
type Factory func(ctx context.Context, settings map[string]any, log *slog.Logger) (Driver, error)

// Registration declares a driver in the static table: its name, the
// environment it is able to run in, and its factory. Environment
// applicability is a declared tag, not something probed at runtime.
type Registration struct {
	Name        string
	Environment domain.Environment
	New         Factory
}
