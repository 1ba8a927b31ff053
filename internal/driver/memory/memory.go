// Package memory implements the storage contract against process-local
// memory. It is the client-environment backend: nothing leaves the process,
// which also makes it the natural driver for tests.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"livedoc/internal/codec"
	"livedoc/internal/domain"
)

// Driver stores documents in nested maps: collection name to id to document.
type Driver struct {
	mu          sync.RWMutex
	collections map[string]map[string]*domain.Document
	log         *slog.Logger
}

// New creates an empty in-memory driver.
func New(log *slog.Logger) *Driver {
	if log == nil {
		log = slog.Default()
	}
	return &Driver{
		collections: make(map[string]map[string]*domain.Document),
		log:         log,
	}
}

// Create stores a new document under a fresh id.
func (d *Driver) Create(_ context.Context, collection string, tree *codec.Node, flat map[string]any) (*domain.Document, error) {
	doc := &domain.Document{
		ID:   uuid.NewString(),
		Tree: tree,
		Flat: flat,
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	docs, ok := d.collections[collection]
	if !ok {
		docs = make(map[string]*domain.Document)
		d.collections[collection] = docs
	}
	docs[doc.ID] = doc.Clone()

	d.log.Debug("document created", "collection", collection, "id", doc.ID)
	return doc, nil
}

// Query returns the first document whose flattened state matches every
// query field.
func (d *Driver) Query(_ context.Context, collection string, query domain.Query) (*domain.Document, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, doc := range d.collections[collection] {
		if query.Matches(doc.Flat) {
			return doc.Clone(), nil
		}
	}
	return nil, domain.ErrNotFound
}

// Update replaces the stored state of an existing document.
func (d *Driver) Update(_ context.Context, collection, id string, tree *codec.Node, flat map[string]any) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	doc, ok := d.collections[collection][id]
	if !ok {
		return fmt.Errorf("update %s/%s: %w", collection, id, domain.ErrNotFound)
	}
	doc.Tree = tree
	doc.Flat = flat
	return nil
}

// Remove deletes a document, reporting whether it existed.
func (d *Driver) Remove(_ context.Context, collection, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	docs := d.collections[collection]
	if _, ok := docs[id]; !ok {
		return false, nil
	}
	delete(docs, id)
	return true, nil
}

// Len reports how many documents a collection holds. Test helper.
func (d *Driver) Len(collection string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.collections[collection])
}
