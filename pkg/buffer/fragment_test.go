package buffer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferPushWithinFirstFragment(t *testing.T) {
	b := NewBuffer[int](8, 2)
	defer b.Close()

	for i := 0; i < 8; i++ {
		require.True(t, b.Push(i))
	}
	assert.Equal(t, 8, b.Len())
}

func TestBufferGrowsAcrossFragments(t *testing.T) {
	b := NewBuffer[int](4, 1)
	defer b.Close()

	const n = 100
	for i := 0; i < n; i++ {
		ok := b.Push(i)
		for !ok {
			// active fragment full and the next one hasn't arrived from
			// the growth worker yet; give it a moment and retry.
			time.Sleep(time.Millisecond)
			ok = b.Push(i)
		}
	}

	assert.Equal(t, n, b.Len())

	b.Rewind()
	for i := 0; i < n; i++ {
		v, ok := b.Next()
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
	_, ok := b.Next()
	assert.False(t, ok)
}

func TestBufferPeekDoesNotAdvance(t *testing.T) {
	b := NewBuffer[int](4, 1)
	defer b.Close()

	require.True(t, b.Push(42))
	require.True(t, b.Push(43))
	b.Rewind()

	v, ok := b.Peek()
	require.True(t, ok)
	assert.Equal(t, 42, v)

	v, ok = b.Peek()
	require.True(t, ok)
	assert.Equal(t, 42, v, "peek must not advance the cursor")

	v, ok = b.Next()
	require.True(t, ok)
	assert.Equal(t, 42, v)

	v, ok = b.Next()
	require.True(t, ok)
	assert.Equal(t, 43, v)
}

func TestBufferPushFailsWhenGrowthCannotKeepUp(t *testing.T) {
	b := NewBuffer[int](2, 0)
	defer b.Close()

	// remainingThreshold of 0 means the free space never drops below the
	// threshold, so growth is never requested and no replacement fragment
	// is ever delivered.
	require.True(t, b.Push(1))
	require.True(t, b.Push(2))
	// The fragment is now full and nothing is on its way, so Push fails.
	assert.False(t, b.Push(3))
}
