// Package diag provides a bounded history of subprocess/helper diagnostic
// output (stderr) for the Linux and macOS backends, replacing the teacher's
// hand-rolled ffmpeg.BoundedBuffer with the example pack's actual
// ring-buffer library for this generic bounded-byte-history use case.
package diag

import (
	"io"
	"sync"

	"github.com/smallnest/ringbuffer"
)

// DefaultCapacity holds a few kilobytes of recent stderr lines — enough for
// a BackendLost diagnostic, not a log archive.
const DefaultCapacity = 8 * 1024

// Recorder is an io.Writer that keeps only the most recent bytes written to
// it, for attaching to a *procaudio.Error as a diagnostic when a backend's
// helper subprocess dies unexpectedly.
type Recorder struct {
	mu  sync.Mutex
	rb  *ringbuffer.RingBuffer
	cap int
}

// NewRecorder builds a Recorder with the given byte capacity.
func NewRecorder(capacity int) *Recorder {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Recorder{rb: ringbuffer.New(capacity), cap: capacity}
}

// Write implements io.Writer. It never blocks indefinitely: the underlying
// ring is drained of its oldest bytes whenever a write would overflow it.
func (r *Recorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(p) > r.cap {
		p = p[len(p)-r.cap:]
	}
	for r.rb.Length()+len(p) > r.cap {
		free := r.cap - r.rb.Length()
		evict := len(p) - free
		if evict <= 0 {
			break
		}
		discard := make([]byte, evict)
		_, _ = r.rb.Read(discard)
	}
	return r.rb.Write(p)
}

// String returns the currently retained bytes as text, for embedding in an
// error message.
func (r *Recorder) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := r.rb.Length()
	if n == 0 {
		return ""
	}
	buf := make([]byte, n)
	read, _ := r.rb.Read(buf)
	// Put what we read back so later reads of the same diagnostic window
	// still see it; Recorder is meant to be peeked, not drained.
	_, _ = r.rb.Write(buf[:read])
	return string(buf[:read])
}

var _ io.Writer = (*Recorder)(nil)
