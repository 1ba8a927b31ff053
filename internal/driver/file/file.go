// Package file implements the storage contract on the local filesystem.
// Each collection is a directory and each document a JSON file named by its
// id, holding the tagged state tree alongside the flattened projection.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"livedoc/internal/codec"
	"livedoc/internal/domain"
)

// envelope is the on-disk document shape.
type envelope struct {
	ID        string         `json:"id"`
	StateTree *codec.Node    `json:"state_tree"`
	StateJSON map[string]any `json:"state_json"`
}

// Driver stores documents under root/<collection>/<id>.json.
type Driver struct {
	root string
	mu   sync.Mutex
	log  *slog.Logger
}

// New creates a filesystem driver rooted at dir, creating it if needed.
func New(dir string, log *slog.Logger) (*Driver, error) {
	if log == nil {
		log = slog.Default()
	}
	if dir == "" {
		return nil, fmt.Errorf("file driver: root directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("file driver: create root: %w", err)
	}
	return &Driver{root: dir, log: log}, nil
}

// Create writes a new document file under a fresh id.
func (d *Driver) Create(_ context.Context, collection string, tree *codec.Node, flat map[string]any) (*domain.Document, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	dir, err := d.collectionDir(collection, true)
	if err != nil {
		return nil, err
	}

	doc := &domain.Document{ID: uuid.NewString(), Tree: tree, Flat: flat}
	if err := d.write(dir, doc); err != nil {
		return nil, err
	}

	d.log.Debug("document written", "collection", collection, "id", doc.ID)
	return doc, nil
}

// Query scans the collection directory for the first matching document.
// Values read back from disk are JSON-typed, which is exactly what the
// equality filter compares against.
func (d *Driver) Query(_ context.Context, collection string, query domain.Query) (*domain.Document, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	dir, err := d.collectionDir(collection, false)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("file driver: read collection %q: %w", collection, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		doc, err := d.read(filepath.Join(dir, entry.Name()))
		if err != nil {
			d.log.Warn("skipping unreadable document file", "path", entry.Name(), "error", err)
			continue
		}
		if query.Matches(doc.Flat) {
			return doc, nil
		}
	}
	return nil, domain.ErrNotFound
}

// Update rewrites an existing document file in place.
func (d *Driver) Update(_ context.Context, collection, id string, tree *codec.Node, flat map[string]any) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	dir, err := d.collectionDir(collection, false)
	if err != nil {
		return err
	}
	path := filepath.Join(dir, id+".json")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("file driver: update %s/%s: %w", collection, id, domain.ErrNotFound)
	}
	return d.write(dir, &domain.Document{ID: id, Tree: tree, Flat: flat})
}

// Remove deletes the document file, reporting whether it existed.
func (d *Driver) Remove(_ context.Context, collection, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	dir, err := d.collectionDir(collection, false)
	if err != nil {
		return false, err
	}
	err = os.Remove(filepath.Join(dir, id+".json"))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("file driver: remove %s/%s: %w", collection, id, err)
	}
	return true, nil
}

func (d *Driver) collectionDir(collection string, create bool) (string, error) {
	if collection == "" || strings.ContainsAny(collection, `/\`) {
		return "", fmt.Errorf("file driver: invalid collection name %q", collection)
	}
	dir := filepath.Join(d.root, collection)
	if create {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("file driver: create collection %q: %w", collection, err)
		}
	}
	return dir, nil
}

func (d *Driver) write(dir string, doc *domain.Document) error {
	data, err := json.MarshalIndent(envelope{ID: doc.ID, StateTree: doc.Tree, StateJSON: doc.Flat}, "", "  ")
	if err != nil {
		return fmt.Errorf("file driver: encode document %s: %w", doc.ID, err)
	}
	path := filepath.Join(dir, doc.ID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("file driver: write %s: %w", path, err)
	}
	return nil
}

func (d *Driver) read(path string) (*domain.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &domain.Document{ID: env.ID, Tree: env.StateTree, Flat: env.StateJSON}, nil
}
