package store

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livedoc/internal/codec"
	"livedoc/internal/domain"
	"livedoc/internal/driver"
	"livedoc/internal/validator"
)

// partialDriver violates the contract by returning documents without ids.
type partialDriver struct{}

func (partialDriver) Create(_ context.Context, _ string, tree *codec.Node, flat map[string]any) (*domain.Document, error) {
	return &domain.Document{Tree: tree, Flat: flat}, nil
}

func (partialDriver) Query(context.Context, string, domain.Query) (*domain.Document, error) {
	return &domain.Document{ID: "found"}, nil // id but no state tree
}

func (partialDriver) Update(context.Context, string, string, *codec.Node, map[string]any) error {
	return nil
}

func (partialDriver) Remove(context.Context, string, string) (bool, error) {
	return false, nil
}

func newPartialStore(t *testing.T) *Store {
	t.Helper()
	registry := driver.NewRegistry([]driver.Registration{{
		Name:        "partial",
		Environment: domain.EnvironmentServer,
		New: func(context.Context, map[string]any, *slog.Logger) (driver.Driver, error) {
			return partialDriver{}, nil
		},
	}}, nil)
	registry.Init(context.Background(), driver.Props{Environment: domain.EnvironmentServer})

	s := New(registry, validator.NewRegistry(nil), nil)
	t.Cleanup(func() { s.Close(context.Background()) })
	return s
}

func TestPartialDocumentFromCreateIsFatal(t *testing.T) {
	s := newPartialStore(t)

	_, err := s.Open(context.Background(), "partial", "things", nil, map[string]any{"x": 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMalformedDocument)
}

func TestPartialDocumentFromQueryIsFatal(t *testing.T) {
	s := newPartialStore(t)

	_, err := s.Open(context.Background(), "partial", "things", domain.Query{"x": 1}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMalformedDocument)
}
