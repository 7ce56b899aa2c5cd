// Package ring is the lock-light byte queue bridging an OS audio callback
// thread to the dispatcher: one producer, one consumer, frame-aligned,
// drop-oldest-frame on overflow. Adapted from the teacher's
// buffer.CaptureBuffer circular-byte-array idiom, replacing its
// time-indexed ReadSegment with the byte-accounting contract the capture
// façade actually needs (a monotonic drop counter, never-block writes).
package ring

import (
	"sync"
	"time"
)

// DefaultCapacity is ≈11s at 48kHz stereo float32, matching the default the
// façade falls back to when no capacity hint is given.
const DefaultCapacity = 4 * 1024 * 1024

// Buffer is a fixed-capacity byte ring with a single writer and a single
// reader role, both safe to call concurrently with each other (but not with
// themselves — the façade funnels all writes through the bridge thread and
// all reads through the dispatcher, per the single-writer/single-reader
// discipline).
type Buffer struct {
	mu         sync.Mutex
	data       []byte
	frameSize  uint32
	head, tail int // byte offsets; tail is where the next write lands
	size       int // bytes currently held

	dropped uint64

	// notify is a capacity-1 semaphore signaling "data may be available".
	// Write sends to it with a non-blocking select so it never allocates or
	// blocks on the audio callback thread; Wait drains it (or times out).
	// A stale pending signal just causes an extra, harmless empty wakeup.
	notify chan struct{}
}

// New allocates a ring of the given byte capacity, rounded down to a whole
// number of frames of frameSize (at least one frame). frameSize must be > 0.
func New(capacity int, frameSize uint32) *Buffer {
	if frameSize == 0 {
		frameSize = 1
	}
	frames := capacity / int(frameSize)
	if frames < 1 {
		frames = 1
	}
	return &Buffer{
		data:      make([]byte, frames*int(frameSize)),
		frameSize: frameSize,
		notify:    make(chan struct{}, 1),
	}
}

// Dropped returns the cumulative number of frames discarded to overflow.
func (b *Buffer) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Len returns the number of bytes currently buffered.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Cap returns the ring's byte capacity.
func (b *Buffer) Cap() int { return len(b.data) }

// Write copies p into the ring. p must be a whole number of frames. If p
// does not fit, the oldest whole frames are discarded until it does, and
// the drop counter advances by the number of frames discarded. Write never
// blocks and never allocates.
func (b *Buffer) Write(p []byte) {
	if len(p) == 0 {
		return
	}
	n := len(p)

	b.mu.Lock()

	cap := len(b.data)
	if n > cap {
		// Pathological: a single write larger than the whole ring. Keep
		// only the tail of it, frame-aligned.
		keep := (cap / int(b.frameSize)) * int(b.frameSize)
		dropFrames := uint64((n - keep) / int(b.frameSize))
		b.dropped += dropFrames
		p = p[n-keep:]
		n = len(p)
	}

	for b.size+n > cap {
		// Advance head by whole frames until the write fits.
		free := cap - b.size
		need := n - free
		dropFrames := (need + int(b.frameSize) - 1) / int(b.frameSize)
		dropBytes := dropFrames * int(b.frameSize)
		if dropBytes > b.size {
			dropBytes = b.size
			dropFrames = dropBytes / int(b.frameSize)
		}
		b.head = (b.head + dropBytes) % cap
		b.size -= dropBytes
		b.dropped += uint64(dropFrames)
	}

	written := copy(b.data[b.tail:], p)
	if written < n {
		copy(b.data, p[written:])
	}
	b.tail = (b.tail + n) % cap
	b.size += n
	b.mu.Unlock()

	select {
	case b.notify <- struct{}{}:
	default:
	}
}

// ReadAvailable copies up to len(dest) bytes, never splitting a frame, and
// returns the number of bytes copied. Returns 0 immediately when empty.
func (b *Buffer) ReadAvailable(dest []byte) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(dest)
	if n > b.size {
		n = b.size
	}
	n -= n % int(b.frameSize)
	if n == 0 {
		return 0
	}

	cap := len(b.data)
	first := copy(dest[:n], b.data[b.head:])
	if first < n {
		copy(dest[first:n], b.data[:n-first])
	}

	b.head = (b.head + n) % cap
	b.size -= n
	return n
}

// Wait suspends the calling goroutine until at least one frame is
// available, timeout elapses (0 means return immediately), or stopped
// becomes readable (closed). Returns true if data is (or may now be)
// available.
func (b *Buffer) Wait(timeout time.Duration, stopped <-chan struct{}) bool {
	b.mu.Lock()
	if b.size >= int(b.frameSize) {
		b.mu.Unlock()
		return true
	}
	b.mu.Unlock()

	if timeout <= 0 {
		select {
		case <-b.notify:
			return true
		default:
			return false
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-b.notify:
		return true
	case <-stopped:
		return false
	case <-timer.C:
		return false
	}
}
