// Package sqlite implements the storage contract on an embedded SQLite
// database. Documents live in a single table with the tagged state tree and
// the flattened projection stored as JSON columns; equality filters are
// pushed down as json_extract predicates against the projection.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"livedoc/internal/codec"
	"livedoc/internal/domain"
)

// queryPathPrefix marks a query key already rewritten into a JSON path.
const queryPathPrefix = "$."

// Driver stores documents in SQLite.
type Driver struct {
	db  *sql.DB
	log *slog.Logger
}

// New opens (or creates) the database at path and ensures the schema.
// Use ":memory:" for an ephemeral database.
func New(path string, log *slog.Logger) (*Driver, error) {
	if log == nil {
		log = slog.Default()
	}
	if path == "" {
		return nil, fmt.Errorf("sqlite driver: database path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite driver: open database: %w", err)
	}

	d := &Driver{db: db, log: log}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite driver: migrate: %w", err)
	}
	return d, nil
}

func (d *Driver) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		collection TEXT NOT NULL,
		state_tree JSON NOT NULL,
		state_json JSON NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection);
	`
	_, err := d.db.Exec(schema)
	return err
}

// TransformQuery rewrites the generic field-equality query into JSON paths
// targeting the flattened projection column.
func (d *Driver) TransformQuery(query domain.Query) domain.Query {
	native := make(domain.Query, len(query))
	for field, value := range query {
		if strings.HasPrefix(field, queryPathPrefix) {
			native[field] = value
			continue
		}
		native[queryPathPrefix+field] = value
	}
	return native
}

// Create inserts a new document under a fresh id.
func (d *Driver) Create(ctx context.Context, collection string, tree *codec.Node, flat map[string]any) (*domain.Document, error) {
	doc := &domain.Document{ID: uuid.NewString(), Tree: tree, Flat: flat}

	treeJSON, flatJSON, err := encodeColumns(doc)
	if err != nil {
		return nil, err
	}

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO documents (id, collection, state_tree, state_json)
		VALUES (?, ?, ?, ?)
	`, doc.ID, collection, treeJSON, flatJSON)
	if err != nil {
		return nil, fmt.Errorf("sqlite driver: insert document: %w", err)
	}

	d.log.Debug("document inserted", "collection", collection, "id", doc.ID)
	return doc, nil
}

// Query returns the first document matching every json_extract predicate.
// Keys not yet in JSON-path form (callers that skipped TransformQuery) are
// rewritten on the way in.
func (d *Driver) Query(ctx context.Context, collection string, query domain.Query) (*domain.Document, error) {
	where := []string{"collection = ?"}
	args := []any{collection}

	for field, value := range d.TransformQuery(query) {
		if value == nil {
			// json_extract yields SQL NULL for a JSON null, and NULL never
			// compares equal. json_type distinguishes a present null from a
			// missing field.
			where = append(where, "json_type(state_json, ?) = 'null'")
			args = append(args, field)
			continue
		}
		bound, err := bindValue(value)
		if err != nil {
			return nil, fmt.Errorf("sqlite driver: query field %q: %w", field, err)
		}
		where = append(where, "json_extract(state_json, ?) = ?")
		args = append(args, field, bound)
	}

	row := d.db.QueryRowContext(ctx, `
		SELECT id, state_tree, state_json FROM documents
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY created_at LIMIT 1
	`, args...)

	return scanDocument(row)
}

// Update replaces the stored state of an existing document.
func (d *Driver) Update(ctx context.Context, collection, id string, tree *codec.Node, flat map[string]any) error {
	treeJSON, flatJSON, err := encodeColumns(&domain.Document{ID: id, Tree: tree, Flat: flat})
	if err != nil {
		return err
	}

	res, err := d.db.ExecContext(ctx, `
		UPDATE documents SET state_tree = ?, state_json = ?, updated_at = ?
		WHERE collection = ? AND id = ?
	`, treeJSON, flatJSON, time.Now().UTC(), collection, id)
	if err != nil {
		return fmt.Errorf("sqlite driver: update document: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite driver: update document: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("sqlite driver: update %s/%s: %w", collection, id, domain.ErrNotFound)
	}
	return nil
}

// Remove deletes a document, reporting whether a row was deleted.
func (d *Driver) Remove(ctx context.Context, collection, id string) (bool, error) {
	res, err := d.db.ExecContext(ctx, `
		DELETE FROM documents WHERE collection = ? AND id = ?
	`, collection, id)
	if err != nil {
		return false, fmt.Errorf("sqlite driver: delete document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite driver: delete document: %w", err)
	}
	return affected > 0, nil
}

// Close releases the database handle.
func (d *Driver) Close() error {
	return d.db.Close()
}

func encodeColumns(doc *domain.Document) (string, string, error) {
	treeJSON, err := json.Marshal(doc.Tree)
	if err != nil {
		return "", "", fmt.Errorf("sqlite driver: encode state tree %s: %w", doc.ID, err)
	}
	flat := doc.Flat
	if flat == nil {
		flat = map[string]any{}
	}
	flatJSON, err := json.Marshal(flat)
	if err != nil {
		return "", "", fmt.Errorf("sqlite driver: encode state json %s: %w", doc.ID, err)
	}
	return string(treeJSON), string(flatJSON), nil
}

// bindValue converts a query value into something SQLite compares cleanly
// against json_extract output. Scalars pass through; containers are compared
// in their JSON text form.
func bindValue(value any) (any, error) {
	switch v := value.(type) {
	case string, bool, int, int32, int64, float32, float64:
		return v, nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return string(data), nil
	}
}

func scanDocument(row *sql.Row) (*domain.Document, error) {
	var (
		id       string
		treeJSON []byte
		flatJSON []byte
	)
	if err := row.Scan(&id, &treeJSON, &flatJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("sqlite driver: scan document: %w", err)
	}

	doc := &domain.Document{ID: id}
	if err := json.Unmarshal(treeJSON, &doc.Tree); err != nil {
		return nil, fmt.Errorf("sqlite driver: decode state tree %s: %w", id, err)
	}
	if err := json.Unmarshal(flatJSON, &doc.Flat); err != nil {
		return nil, fmt.Errorf("sqlite driver: decode state json %s: %w", id, err)
	}
	return doc, nil
}
