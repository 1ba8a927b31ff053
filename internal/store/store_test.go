package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livedoc/internal/codec"
	"livedoc/internal/domain"
	"livedoc/internal/driver"
	"livedoc/internal/driver/builtin"
	"livedoc/internal/validator"
)

const waitFor = 2 * time.Second
const tick = 10 * time.Millisecond

// newTestStore brings up a store with all three built-in drivers. The memory
// driver is client-environment, so requesting it in test mode also exercises
// the gating bypass.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	registry := driver.NewRegistry(builtin.Table(), nil)
	status := registry.Init(context.Background(), driver.Props{
		Environment: domain.EnvironmentServer,
		TestMode:    true,
		Requested:   []string{builtin.NameMemory},
		Settings: map[string]map[string]any{
			builtin.NameFile:   {"root": t.TempDir()},
			builtin.NameSQLite: {"path": ":memory:"},
		},
	})
	for name, ok := range status {
		require.True(t, ok, "driver %s failed to initialize", name)
	}

	s := New(registry, validator.NewRegistry(nil), nil)
	t.Cleanup(func() { s.Close(context.Background()) })
	return s
}

func driverNames() []string {
	return []string{builtin.NameMemory, builtin.NameFile, builtin.NameSQLite}
}

// backendState reads a document's current fields straight from the driver,
// bypassing the live object.
func backendState(t *testing.T, s *Store, driverName, collection string, query domain.Query) (map[string]any, string) {
	t.Helper()
	drv, err := s.registry.Get(driverName)
	require.NoError(t, err)
	if qt, ok := drv.(driver.QueryTransformer); ok {
		query = qt.TransformQuery(query)
	}
	doc, err := drv.Query(context.Background(), collection, query)
	if err != nil {
		return nil, ""
	}
	fields, err := codec.DecodeObject(doc.Tree)
	require.NoError(t, err)
	return fields, doc.ID
}

func TestOpenUnknownDriver(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Open(context.Background(), "bogus", "things", nil, map[string]any{"x": 1})
	assert.ErrorIs(t, err, domain.ErrUnknownDriver)
}

func TestInvalidInitialValueCreatesNothing(t *testing.T) {
	s := newTestStore(t)
	s.Validator().Register("things", validator.Schema{
		"requiredField": {Validate: validator.IsString, Message: "must be a string"},
	})

	for _, name := range driverNames() {
		t.Run(name, func(t *testing.T) {
			_, err := s.Open(context.Background(), name, "things", nil, map[string]any{"requiredField": 123})
			require.Error(t, err)
			assert.True(t, validator.IsValidation(err))

			state, _ := backendState(t, s, name, "things", domain.Query{"requiredField": 123})
			assert.Nil(t, state, "no document may be created on validation failure")
		})
	}
}

func TestNilInitialCreateIsValidated(t *testing.T) {
	s := newTestStore(t)
	s.Validator().Register("things", validator.Schema{
		"requiredField": {Validate: validator.IsString, Message: "must be a string"},
	})

	// An empty query with no initial value would store an empty document, so
	// the empty state goes through the schema like any other create.
	_, err := s.Open(context.Background(), builtin.NameMemory, "things", nil, nil)
	require.Error(t, err)
	assert.True(t, validator.IsValidation(err))

	state, _ := backendState(t, s, builtin.NameMemory, "things", domain.Query{})
	assert.Nil(t, state, "no document may be created on validation failure")
}

func TestCreateAndQueryRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, name := range driverNames() {
		t.Run(name, func(t *testing.T) {
			created, err := s.Open(ctx, name, "round", nil, map[string]any{"name": "alpha-" + name, "rank": 4})
			require.NoError(t, err)
			require.NotEmpty(t, created.ID())

			found, err := s.Open(ctx, name, "round", domain.Query{"name": "alpha-" + name}, nil)
			require.NoError(t, err)
			assert.Equal(t, created.ID(), found.ID())
			assert.Equal(t, "alpha-"+name, found.Get("name"))
		})
	}
}

func TestLookupMissWithoutFallback(t *testing.T) {
	s := newTestStore(t)

	for _, name := range driverNames() {
		t.Run(name, func(t *testing.T) {
			_, err := s.Open(context.Background(), name, "misses", domain.Query{"name": "ghost"}, nil)
			assert.ErrorIs(t, err, domain.ErrNotFound)

			state, _ := backendState(t, s, name, "misses", domain.Query{"name": "ghost"})
			assert.Nil(t, state, "a pure lookup miss must create nothing")
		})
	}
}

func TestLookupMissWithFallbackCreates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, name := range driverNames() {
		t.Run(name, func(t *testing.T) {
			obj, err := s.Open(ctx, name, "fallback", domain.Query{"name": "fresh"}, map[string]any{"name": "fresh", "n": 1})
			require.NoError(t, err)
			assert.Equal(t, "fresh", obj.Get("name"))

			// The same query now finds the created document.
			again, err := s.Open(ctx, name, "fallback", domain.Query{"name": "fresh"}, nil)
			require.NoError(t, err)
			assert.Equal(t, obj.ID(), again.ID())
		})
	}
}

func TestMutationEventuallyPersists(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, name := range driverNames() {
		t.Run(name, func(t *testing.T) {
			obj, err := s.Open(ctx, name, "sync", nil, map[string]any{"name": "orig-" + name})
			require.NoError(t, err)

			obj.Set("name", "updated-"+name)

			require.Eventually(t, func() bool {
				state, id := backendState(t, s, name, "sync", domain.Query{"name": "updated-" + name})
				return state != nil && id == obj.ID()
			}, waitFor, tick, "mutation was never written through")
		})
	}
}

func TestInvalidMutationIsSkippedNotRolledBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	s.Validator().Register("guarded", validator.Schema{
		"requiredField": {Validate: validator.IsString, Message: "must be a string"},
	})

	obj, err := s.Open(ctx, builtin.NameMemory, "guarded", nil, map[string]any{"requiredField": "ok"})
	require.NoError(t, err)

	// Invalid mutation: backend must keep the last valid state.
	obj.Set("requiredField", 123)
	assert.Never(t, func() bool {
		state, _ := backendState(t, s, builtin.NameMemory, "guarded", domain.Query{"requiredField": 123})
		return state != nil
	}, 300*time.Millisecond, tick, "invalid state must never reach the backend")

	// The in-memory object is left diverged, not rolled back.
	assert.Equal(t, 123, obj.Get("requiredField"))

	state, _ := backendState(t, s, builtin.NameMemory, "guarded", domain.Query{"requiredField": "ok"})
	require.NotNil(t, state, "backend must keep the last valid state")

	// A later valid mutation resynchronizes.
	obj.Set("requiredField", "updated")
	require.Eventually(t, func() bool {
		state, _ := backendState(t, s, builtin.NameMemory, "guarded", domain.Query{"requiredField": "updated"})
		return state != nil
	}, waitFor, tick)
}

func TestIdentityStableAcrossUpdates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	obj, err := s.Open(ctx, builtin.NameSQLite, "stable", nil, map[string]any{"name": "v0"})
	require.NoError(t, err)
	id := obj.ID()

	for i, value := range []string{"v1", "v2", "v3"} {
		obj.Set("name", value)
		require.Eventually(t, func() bool {
			_, gotID := backendState(t, s, builtin.NameSQLite, "stable", domain.Query{"name": value})
			return gotID == id
		}, waitFor, tick, "update %d changed or lost the id", i)
	}

	assert.Equal(t, id, obj.ID())
}

func TestRemove(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, name := range driverNames() {
		t.Run(name, func(t *testing.T) {
			obj, err := s.Open(ctx, name, "trash", nil, map[string]any{"name": "doomed"})
			require.NoError(t, err)

			id, removed := s.Remove(ctx, name, "trash", domain.Query{"name": "doomed"})
			assert.True(t, removed)
			assert.Equal(t, obj.ID(), id)

			_, err = s.Open(ctx, name, "trash", domain.Query{"name": "doomed"}, nil)
			assert.ErrorIs(t, err, domain.ErrNotFound)

			// Nothing left to remove.
			_, removed = s.Remove(ctx, name, "trash", domain.Query{"name": "doomed"})
			assert.False(t, removed)
		})
	}
}

func TestRemoveNeverPropagatesErrors(t *testing.T) {
	s := newTestStore(t)

	_, removed := s.Remove(context.Background(), "bogus", "things", domain.Query{"x": 1})
	assert.False(t, removed)
}

func TestCloseCancelsWatchersAndClearsRegistry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Open(ctx, builtin.NameMemory, "things", nil, map[string]any{"name": "a"})
	require.NoError(t, err)
	_, err = s.Open(ctx, builtin.NameMemory, "things", nil, map[string]any{"name": "b"})
	require.NoError(t, err)
	require.Equal(t, 2, s.watchers.len())

	s.Close(ctx)

	assert.Zero(t, s.watchers.len())
	_, err = s.registry.Get(builtin.NameMemory)
	assert.ErrorIs(t, err, domain.ErrUnknownDriver)
}

// schemaScenario is the full worked example: a schema requiring a string
// field, an invalid create, a valid create, an invalid mutation that never
// lands, and a valid mutation that does.
func TestSchemaScenario(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	s.Validator().Register("X", validator.Schema{
		"requiredField": {Validate: validator.IsString, Message: "requiredField must be a string"},
	})

	_, err := s.Open(ctx, builtin.NameMemory, "X", nil, map[string]any{"requiredField": 123})
	require.Error(t, err)

	obj, err := s.Open(ctx, builtin.NameMemory, "X", nil, map[string]any{"requiredField": "ok"})
	require.NoError(t, err)
	assert.Equal(t, "ok", obj.Get("requiredField"))
	assert.NotEmpty(t, obj.ID())

	obj.Set("requiredField", 123)
	assert.Never(t, func() bool {
		state, _ := backendState(t, s, builtin.NameMemory, "X", domain.Query{"requiredField": 123})
		return state != nil
	}, 300*time.Millisecond, tick)

	obj.Set("requiredField", "updated")
	require.Eventually(t, func() bool {
		state, _ := backendState(t, s, builtin.NameMemory, "X", domain.Query{"requiredField": "updated"})
		return state != nil
	}, waitFor, tick)
}
