package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livedoc/internal/codec"
	"livedoc/internal/domain"
)

func newTestDriver(t *testing.T) *Driver {
	t.Helper()
	d, err := New(t.TempDir(), nil)
	require.NoError(t, err)
	return d
}

func snapshot(fields map[string]any) (*codec.Node, map[string]any) {
	tree := codec.EncodeObject(fields)
	return tree, codec.Flatten(tree)
}

func TestCreateWritesDocumentFile(t *testing.T) {
	d := newTestDriver(t)
	tree, flat := snapshot(map[string]any{"name": "alpha"})

	doc, err := d.Create(context.Background(), "things", tree, flat)
	require.NoError(t, err)
	require.NotEmpty(t, doc.ID)

	_, err = os.Stat(filepath.Join(d.root, "things", doc.ID+".json"))
	assert.NoError(t, err)
}

func TestQueryRoundTrip(t *testing.T) {
	d := newTestDriver(t)
	ctx := context.Background()

	tree, flat := snapshot(map[string]any{"name": "alpha", "rank": 7})
	created, err := d.Create(ctx, "things", tree, flat)
	require.NoError(t, err)

	// rank was written as a Go int and read back as a JSON number; the
	// equality filter must still match.
	found, err := d.Query(ctx, "things", domain.Query{"rank": 7})
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	fields, err := codec.DecodeObject(found.Tree)
	require.NoError(t, err)
	assert.Equal(t, "alpha", fields["name"])
}

func TestQueryMissReturnsNotFound(t *testing.T) {
	d := newTestDriver(t)
	ctx := context.Background()

	_, err := d.Query(ctx, "empty", domain.Query{"name": "x"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	tree, flat := snapshot(map[string]any{"name": "alpha"})
	_, err = d.Create(ctx, "things", tree, flat)
	require.NoError(t, err)

	_, err = d.Query(ctx, "things", domain.Query{"name": "beta"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateRewritesFile(t *testing.T) {
	d := newTestDriver(t)
	ctx := context.Background()

	tree, flat := snapshot(map[string]any{"name": "alpha"})
	doc, err := d.Create(ctx, "things", tree, flat)
	require.NoError(t, err)

	newTree, newFlat := snapshot(map[string]any{"name": "beta"})
	require.NoError(t, d.Update(ctx, "things", doc.ID, newTree, newFlat))

	found, err := d.Query(ctx, "things", domain.Query{"name": "beta"})
	require.NoError(t, err)
	assert.Equal(t, doc.ID, found.ID)
}

func TestUpdateMissingDocument(t *testing.T) {
	d := newTestDriver(t)
	tree, flat := snapshot(map[string]any{"name": "alpha"})

	err := d.Update(context.Background(), "things", "nope", tree, flat)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRemove(t *testing.T) {
	d := newTestDriver(t)
	ctx := context.Background()

	tree, flat := snapshot(map[string]any{"name": "alpha"})
	doc, err := d.Create(ctx, "things", tree, flat)
	require.NoError(t, err)

	removed, err := d.Remove(ctx, "things", doc.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = d.Remove(ctx, "things", doc.ID)
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = d.Query(ctx, "things", domain.Query{"name": "alpha"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestInvalidCollectionName(t *testing.T) {
	d := newTestDriver(t)
	tree, flat := snapshot(map[string]any{"name": "alpha"})

	_, err := d.Create(context.Background(), "../escape", tree, flat)
	assert.Error(t, err)
}

func TestNewRequiresRoot(t *testing.T) {
	_, err := New("", nil)
	assert.Error(t, err)
}
