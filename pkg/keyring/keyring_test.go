package keyring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFiltersBlankAndDuplicateKeys(t *testing.T) {
	ring := New([]string{"  ", "alpha", "", "beta", "alpha", " beta "})

	assert.Equal(t, 2, ring.Size())

	key, err := ring.Current()
	require.NoError(t, err)
	assert.Equal(t, "alpha", key)
}

func TestCurrentOnEmptyRing(t *testing.T) {
	ring := New(nil)

	_, err := ring.Current()
	assert.ErrorIs(t, err, ErrNoKeys)
	assert.Equal(t, 0, ring.Size())
}

func TestRotateWrapsAround(t *testing.T) {
	keys := []string{"k1", "k2", "k3"}
	ring := New(keys)

	// n rotations return to the first key
	for i := 0; i < len(keys); i++ {
		ring.Rotate()
	}
	key, err := ring.Current()
	require.NoError(t, err)
	assert.Equal(t, "k1", key)

	// one more lands on the second key
	ring.Rotate()
	key, err = ring.Current()
	require.NoError(t, err)
	assert.Equal(t, "k2", key)
}

func TestRotateVisitsEveryKeyInOrder(t *testing.T) {
	ring := New([]string{"a", "b", "c"})

	var seen []string
	for i := 0; i < 3; i++ {
		key, err := ring.Current()
		require.NoError(t, err)
		seen = append(seen, key)
		ring.Rotate()
	}
	assert.Equal(t, []string{"a", "b", "c"}, seen)
}

func TestRotateEmptyRingIsNoop(t *testing.T) {
	ring := New([]string{""})

	assert.NotPanics(t, func() { ring.Rotate() })
	_, err := ring.Current()
	assert.ErrorIs(t, err, ErrNoKeys)
}

func TestRotateSingleKeyRing(t *testing.T) {
	ring := New([]string{"only"})

	ring.Rotate()
	key, err := ring.Current()
	require.NoError(t, err)
	assert.Equal(t, "only", key)
}
