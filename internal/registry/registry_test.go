package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLookup(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("inc", func(n int) int { return n + 1 }))

	fn, ok := r.Lookup("inc")
	require.True(t, ok)
	assert.Equal(t, 6, fn.(func(int) int)(5))
}

func TestRegisterDuplicateRejected(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("f", func() {}))
	assert.ErrorIs(t, r.Register("f", func() {}), ErrDuplicate)
}

func TestRegisterNilRejected(t *testing.T) {
	r := New()
	assert.ErrorIs(t, r.Register("f", nil), ErrNilFunc)
}

func TestLookupMissing(t *testing.T) {
	r := New()
	_, ok := r.Lookup("missing")
	assert.False(t, ok)
}

func TestUnregister(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("f", func() {}))
	r.Unregister("f")
	_, ok := r.Lookup("f")
	assert.False(t, ok)
}

func TestNames(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("a", func() {}))
	require.NoError(t, r.Register("b", func() {}))
	assert.ElementsMatch(t, []string{"a", "b"}, r.Names())
}
