package concrt

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextBackgroundNeverCancels(t *testing.T) {
	ctx := Background()
	assert.Nil(t, ctx.Err())
	select {
	case <-ctx.Done():
		t.Fatal("background context must never close Done")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestContextWithCancel(t *testing.T) {
	ctx, cancel := WithCancel(Background())
	require.Nil(t, ctx.Err())
	cancel()
	<-ctx.Done()
	assert.ErrorIs(t, ctx.Err(), ErrContextCancelled)

	// calling cancel again is a no-op
	cancel()
	assert.ErrorIs(t, ctx.Err(), ErrContextCancelled)
}

func TestContextWithTimeout(t *testing.T) {
	ctx, cancel := WithTimeout(Background(), 20*time.Millisecond)
	defer cancel()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("timeout context never fired")
	}
	assert.ErrorIs(t, ctx.Err(), ErrContextTimeout)
}

func TestContextPropagatesToChildren(t *testing.T) {
	parent, cancel := WithCancel(Background())
	child, _ := WithCancel(parent)
	grandchild, _ := WithCancel(child)

	cancel()

	<-grandchild.Done()
	assert.ErrorIs(t, child.Err(), ErrContextCancelled)
	assert.ErrorIs(t, grandchild.Err(), ErrContextCancelled)
}

func TestContextWithValue(t *testing.T) {
	type key string
	ctx := WithValue(Background(), key("a"), 1)
	ctx = WithValue(ctx, key("b"), 2)

	assert.Equal(t, 1, ctx.Value(key("a")))
	assert.Equal(t, 2, ctx.Value(key("b")))
	assert.Nil(t, ctx.Value(key("missing")))
}

func TestContextErrMonotonic(t *testing.T) {
	ctx, cancel := WithCancel(Background())
	cancel()
	first := ctx.Err()
	require.NotNil(t, first)
	cancel()
	assert.True(t, errors.Is(ctx.Err(), ErrContextCancelled))
	assert.Equal(t, first, ctx.Err())
}
