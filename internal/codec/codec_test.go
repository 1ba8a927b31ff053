package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeTagsContainers(t *testing.T) {
	n := Encode(map[string]any{
		"name":  "alpha",
		"tags":  []any{"a", "b"},
		"inner": map[string]any{"count": 3},
	})

	require.Equal(t, KindMap, n.Kind)
	assert.Equal(t, KindValue, n.Fields["name"].Kind)
	assert.Equal(t, KindList, n.Fields["tags"].Kind)
	assert.Equal(t, KindMap, n.Fields["inner"].Kind)
	assert.Equal(t, KindValue, n.Fields["inner"].Fields["count"].Kind)
}

func TestRoundTrip(t *testing.T) {
	original := map[string]any{
		"name":    "alpha",
		"enabled": true,
		"tags":    []any{"a", "b"},
		"nested":  map[string]any{"depth": 2, "more": []any{map[string]any{"x": 1}}},
	}

	decoded, err := DecodeObject(EncodeObject(original))
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestEmptyContainersSurviveRoundTrip(t *testing.T) {
	original := map[string]any{
		"emptyMap":  map[string]any{},
		"emptyList": []any{},
	}

	decoded, err := DecodeObject(EncodeObject(original))
	require.NoError(t, err)

	// Without container tags these would both decode as nil.
	assert.Equal(t, map[string]any{}, decoded["emptyMap"])
	assert.Equal(t, []any{}, decoded["emptyList"])
}

func TestEncodeObjectNil(t *testing.T) {
	n := EncodeObject(nil)
	require.Equal(t, KindMap, n.Kind)

	decoded, err := DecodeObject(n)
	require.NoError(t, err)
	assert.Empty(t, decoded)
}

func TestDecodeObjectRejectsNonMapRoot(t *testing.T) {
	_, err := DecodeObject(Encode("scalar"))
	assert.Error(t, err)

	_, err = DecodeObject(nil)
	assert.Error(t, err)
}

func TestFlatten(t *testing.T) {
	flat := Flatten(EncodeObject(map[string]any{
		"name":     "alpha",
		"settings": map[string]any{"replicas": 2},
	}))

	assert.Equal(t, "alpha", flat["name"])
	assert.Equal(t, map[string]any{"replicas": 2}, flat["settings"])
}
