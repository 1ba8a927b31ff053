// Package validator holds per-collection schemas and validates candidate
// state against them.
//
// Validation runs at two points in a document's life: once before the
// initial create/lookup, and once after every observed mutation before the
// mutation is allowed to reach the driver. A collection without a registered
// schema always validates.
package validator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/puzpuzpuz/xsync/v3"
)

// Predicate checks a single field value. Predicates may block (remote
// lookups, expression evaluation), so they take a context.
type Predicate func(ctx context.Context, value any) (bool, error)

// Rule pairs a field predicate with the message reported when it fails.
type Rule struct {
	Validate Predicate
	Message  string
}

// Schema maps field names to their rules. Every declared field is required.
type Schema map[string]Rule

// MissingFieldError reports a schema-required field absent from the data.
type MissingFieldError struct {
	Collection string
	Field      string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("collection %q: missing required field %q", e.Collection, e.Field)
}

// PredicateError reports a field value rejected by its rule.
type PredicateError struct {
	Collection string
	Field      string
	Message    string
	Value      any
}

func (e *PredicateError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "invalid value"
	}
	return fmt.Sprintf("collection %q: field %q: %s (got %v)", e.Collection, e.Field, msg, e.Value)
}

// IsValidation reports whether err is a validation failure, as opposed to a
// predicate blowing up or a storage error.
func IsValidation(err error) bool {
	var missing *MissingFieldError
	var predicate *PredicateError
	return errors.As(err, &missing) || errors.As(err, &predicate)
}

// Registry maps collection names to schemas.
type Registry struct {
	schemas *xsync.MapOf[string, Schema]
	log     *slog.Logger
}

// NewRegistry creates an empty schema registry.
func NewRegistry(log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		schemas: xsync.NewMapOf[string, Schema](),
		log:     log,
	}
}

// Register installs the schema for a collection, replacing any previous one.
func (r *Registry) Register(collection string, schema Schema) {
	r.schemas.Store(collection, schema)
	r.log.Debug("schema registered", "collection", collection, "fields", len(schema))
}

// Validate checks data against the collection's schema. Collections without
// a schema always pass. Every declared field must be present and accepted by
// its predicate.
func (r *Registry) Validate(ctx context.Context, collection string, data map[string]any) error {
	schema, ok := r.schemas.Load(collection)
	if !ok {
		return nil
	}

	for field, rule := range schema {
		value, present := data[field]
		if !present {
			return &MissingFieldError{Collection: collection, Field: field}
		}
		if rule.Validate == nil {
			continue
		}
		ok, err := rule.Validate(ctx, value)
		if err != nil {
			return fmt.Errorf("collection %q: field %q: predicate: %w", collection, field, err)
		}
		if !ok {
			return &PredicateError{
				Collection: collection,
				Field:      field,
				Message:    rule.Message,
				Value:      value,
			}
		}
	}
	return nil
}
