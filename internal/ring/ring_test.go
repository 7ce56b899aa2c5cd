package ring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadRoundTrip(t *testing.T) {
	b := New(16, 4)
	b.Write([]byte{1, 2, 3, 4})
	b.Write([]byte{5, 6, 7, 8})

	dest := make([]byte, 16)
	n := b.ReadAvailable(dest)
	require.Equal(t, 8, n)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, dest[:n])
	assert.Zero(t, b.Dropped())
}

func TestOverflowDropsWholeFramesAndCounts(t *testing.T) {
	b := New(8, 4) // capacity = 8 bytes = 2 frames

	b.Write([]byte{1, 1, 1, 1}) // frame A
	b.Write([]byte{2, 2, 2, 2}) // frame B, ring full
	b.Write([]byte{3, 3, 3, 3}) // must evict frame A

	assert.Equal(t, uint64(1), b.Dropped())
	assert.Equal(t, 8, b.Len())

	dest := make([]byte, 8)
	n := b.ReadAvailable(dest)
	require.Equal(t, 8, n)
	assert.Equal(t, []byte{2, 2, 2, 2, 3, 3, 3, 3}, dest)
}

func TestReadAvailableNeverSplitsAFrame(t *testing.T) {
	b := New(12, 4)
	b.Write([]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12})

	dest := make([]byte, 6) // only fits one whole frame (4 bytes)
	n := b.ReadAvailable(dest)
	assert.Equal(t, 4, n)
}

func TestWaitReturnsFalseOnTimeoutWhenEmpty(t *testing.T) {
	b := New(16, 4)
	stopped := make(chan struct{})
	start := time.Now()
	ok := b.Wait(20*time.Millisecond, stopped)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
}

func TestWaitWakesOnWrite(t *testing.T) {
	b := New(16, 4)
	stopped := make(chan struct{})

	done := make(chan bool, 1)
	go func() { done <- b.Wait(time.Second, stopped) }()

	time.Sleep(10 * time.Millisecond)
	b.Write([]byte{1, 2, 3, 4})

	select {
	case ok := <-done:
		assert.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Wait did not wake on write")
	}
}

func TestWaitReturnsImmediatelyOnZeroTimeout(t *testing.T) {
	b := New(16, 4)
	stopped := make(chan struct{})
	assert.False(t, b.Wait(0, stopped))

	b.Write([]byte{1, 2, 3, 4})
	assert.True(t, b.Wait(0, stopped))
}
