package proctap

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/proctap/proctap/internal/backend"
	"github.com/proctap/proctap/internal/convert"
	"github.com/proctap/proctap/internal/procaudio"
	"github.com/proctap/proctap/internal/ring"
)

// StopDeadline bounds how long Stop/Close will wait for the backend and
// dispatcher to tear down before giving up on a clean join.
const StopDeadline = 500 * time.Millisecond

// chunkQueueDepth is the depth of the delivery channel Read/Stream drain
// when no callback is registered; the ring buffer upstream already applies
// backpressure via drop-oldest-frame, so this only needs to smooth chunk
// cadence, not hold a deep backlog.
const chunkQueueDepth = 32

// ringAlignment is the LCM of channels(1,2) × sample-width(2,3,4) bytes, so
// the ring can be sized before the native frame size is known (see Open)
// while still only ever evicting or reading whole native frames.
const ringAlignment = 24

// Options configures a session at Open.
type Options struct {
	// Requested is the desired output format. Nil requests the backend's
	// native format verbatim, with no conversion stage. A zero SampleRate
	// or Channels field takes the native value.
	Requested *Format

	// Callback, if non-nil, receives every captured chunk synchronously,
	// exclusive of Read/Stream (see Session.SetCallback).
	Callback func(Chunk)

	// CapacityHint overrides the ring buffer's byte capacity. Zero uses
	// ring.DefaultCapacity.
	CapacityHint int

	// ChunkDuration overrides the dispatcher's delivery cadence. Zero uses
	// ring.DefaultChunkDuration.
	ChunkDuration time.Duration

	// ResampleQuality trades resample CPU cost for fidelity when Requested
	// differs from the backend's native sample rate.
	ResampleQuality ResampleQuality

	// Logger overrides the default zerolog-backed logger.
	Logger Logger
}

// Session is a single per-process audio capture in progress. The zero
// value is not usable; construct with Open.
type Session struct {
	target    Target
	requested *Format
	quality   ResampleQuality
	log       Logger

	chunkDuration time.Duration

	mu      sync.Mutex // serializes state transitions; never held across OS audio calls or user callbacks
	state   State
	closed  bool // set by Close; distinct from StateStopped so closed sessions reject reuse with SessionClosed, not SessionStopped
	lastErr error

	backendImpl backend.Backend
	ring        *ring.Buffer
	dispatcher  *ring.Dispatcher
	nativeFmt   Format

	callback   func(Chunk)
	chunks     chan Chunk
	seq        atomic.Uint64
	dropped    atomic.Uint64

	stopOnce sync.Once
}

// Open validates target and constructs (but does not start) a session.
func Open(target Target, opts *Options) (*Session, error) {
	if opts == nil {
		opts = &Options{}
	}
	if target.Kind != TargetPID && target.Kind != TargetBundleID {
		return nil, procaudio.NewError(procaudio.KindInvalidTarget, "open", fmt.Errorf("unrecognized target kind %v", target.Kind))
	}
	if target.Kind == TargetPID && target.PID == 0 {
		return nil, procaudio.NewError(procaudio.KindInvalidTarget, "open", fmt.Errorf("pid must be non-zero"))
	}
	if target.Kind == TargetBundleID && target.BundleID == "" {
		return nil, procaudio.NewError(procaudio.KindInvalidTarget, "open", fmt.Errorf("bundle id must be non-empty"))
	}

	log := opts.Logger
	if log == nil {
		log = procaudio.NewLogger()
	}

	capacity := opts.CapacityHint
	if capacity <= 0 {
		capacity = ring.DefaultCapacity
	}

	s := &Session{
		target:    target,
		requested: opts.Requested,
		quality:   opts.ResampleQuality,
		log:       log,
		state:     StateCreated,
		callback:  opts.Callback,
		chunks:    make(chan Chunk, chunkQueueDepth),
	}

	// The ring's byte-alignment unit must be fixed before the backend is
	// constructed, but the real native frame size (channels × sample
	// width) isn't known until Activate returns it. ringAlignment is the
	// LCM of every channel/sample-width combination spec.md §3 allows
	// (mono/stereo × int16/int24/int32/float32), so whichever native frame
	// size a backend reports, it divides ringAlignment evenly and eviction
	// still only ever drops whole native frames.
	s.ring = ring.New(capacity, ringAlignment)

	s.chunkDuration = opts.ChunkDuration // consumed in Start, once native format is known

	return s, nil
}

// Start acquires the backend and begins capture.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return procaudio.ErrSessionClosed
	}
	if s.state != StateCreated {
		s.mu.Unlock()
		return procaudio.NewError(procaudio.KindInternal, "start", fmt.Errorf("session must be Created, is %s", s.state))
	}
	s.state = StateStarting
	s.mu.Unlock()

	ctor, ok := backend.ForPlatform(procaudio.OSName())
	if !ok {
		return s.fail(procaudio.NewError(procaudio.KindUnsupportedOS, "start", fmt.Errorf("no backend registered for %s", procaudio.OSName())))
	}

	impl, err := ctor(s.target, s.requested, s.ring, s.log)
	if err != nil {
		return s.fail(err)
	}
	if !impl.Supported() {
		return s.fail(procaudio.NewError(procaudio.KindUnsupportedOS, "start", fmt.Errorf("backend not supported on this host")))
	}

	native, err := impl.Activate(ctx)
	if err != nil {
		return s.fail(err)
	}

	dispatcher := ring.NewDispatcher(s.ring, native.FrameSize(), native.SampleRate, s.chunkDuration)
	dispatcher.OnPanic = func(v interface{}) {
		s.log.Error("proctap: callback panic recovered: %v", v)
	}
	dispatcher.SetCallback(s.deliver(native))

	s.mu.Lock()
	s.backendImpl = impl
	s.nativeFmt = native
	s.dispatcher = dispatcher
	s.state = StateRunning
	s.mu.Unlock()

	go dispatcher.Run()

	return nil
}

// deliver builds the DeliverFunc the dispatcher calls with raw ring bytes,
// closing over the native format so it can run the conversion pipeline
// before invoking the user callback or enqueuing for Read/Stream.
func (s *Session) deliver(native Format) ring.DeliverFunc {
	pipeline := &convert.Pipeline{Quality: convert.ResampleQuality(s.quality)}
	target := native
	if s.requested != nil {
		target = *s.requested
		if target.SampleRate == 0 {
			target.SampleRate = native.SampleRate
		}
		if target.Channels == 0 {
			target.Channels = native.Channels
		}
	}

	return func(data []byte, frames uint32) {
		out, outFrames := data, frames
		if !target.Equal(native) {
			converted, n, err := pipeline.Convert(data, frames, convertFormat(native), convertFormat(target))
			if err != nil {
				s.log.Error("proctap: chunk conversion failed: %v", err)
				return
			}
			out, outFrames = converted, n
		}

		chunk := Chunk{
			Data:       out,
			Frames:     outFrames,
			Format:     target,
			Seq:        s.seq.Add(1),
			CapturedAt: timeNowUnixNano(),
		}

		s.mu.Lock()
		cb := s.callback
		s.mu.Unlock()

		if cb != nil {
			s.invokeCallback(cb, chunk)
			return
		}

		select {
		case s.chunks <- chunk:
		default:
			s.dropped.Add(uint64(frames))
		}
	}
}

func (s *Session) invokeCallback(cb func(Chunk), chunk Chunk) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("proctap: callback panic recovered: %v", r)
		}
	}()
	cb(chunk)
}

func convertFormat(f Format) convert.Format {
	return convert.Format{SampleRate: f.SampleRate, Channels: int(f.Channels), Sample: convert.SampleFormat(f.SampleFormat)}
}

// Read blocks up to timeout for at least one chunk. Returns (Chunk{}, false,
// nil) on timeout, or an error if the session is not Running/Starting, or
// (Chunk{}, false, nil) immediately if a callback is registered (dual
// delivery contract: callback is exclusive of Read).
func (s *Session) Read(timeout time.Duration) (Chunk, bool, error) {
	s.mu.Lock()
	closed := s.closed
	state := s.state
	hasCallback := s.callback != nil
	s.mu.Unlock()

	if closed {
		return Chunk{}, false, procaudio.ErrSessionClosed
	}
	if state != StateRunning && state != StateStarting {
		return Chunk{}, false, procaudio.ErrSessionStopped
	}
	if hasCallback {
		return Chunk{}, false, nil
	}

	if timeout <= 0 {
		select {
		case c := <-s.chunks:
			return c, true, nil
		default:
			return Chunk{}, false, nil
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case c := <-s.chunks:
		return c, true, nil
	case <-timer.C:
		return Chunk{}, false, nil
	}
}

// Stream returns a channel of chunks that closes when the session stops.
// Cancelling ctx stops the caller's iteration; it does not stop capture.
func (s *Session) Stream(ctx context.Context) <-chan Chunk {
	out := make(chan Chunk)
	go func() {
		defer close(out)
		for {
			chunk, ok, err := s.Read(50 * time.Millisecond)
			if err != nil {
				return
			}
			if !ok {
				select {
				case <-ctx.Done():
					return
				default:
					continue
				}
			}
			select {
			case out <- chunk:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// SetCallback atomically replaces the push callback. Takes effect at the
// next chunk boundary.
func (s *Session) SetCallback(cb func(Chunk)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return procaudio.ErrSessionClosed
	}
	s.callback = cb
	return nil
}

// NativeFormat returns the format observed from the backend. Valid only
// while Running.
func (s *Session) NativeFormat() (Format, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Format{}, procaudio.ErrSessionClosed
	}
	if s.state != StateRunning {
		return Format{}, procaudio.NewError(procaudio.KindInternal, "native_format", fmt.Errorf("session is %s, not Running", s.state))
	}
	return s.nativeFmt, nil
}

// IsRunning reports whether the session is actively capturing.
func (s *Session) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateRunning
}

// LastError returns the error that drove the session to Failed, if any.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Diagnostics exposes read-only observability fields: the chosen backend
// strategy (meaningful on Linux) and cumulative dropped-frame counts.
func (s *Session) Diagnostics() SessionDiagnostics {
	s.mu.Lock()
	impl := s.backendImpl
	native := s.nativeFmt
	s.mu.Unlock()

	// The ring counts drops in ringAlignment-byte units; convert them to
	// native frames. s.dropped already counts native frames.
	dropped := s.dropped.Load()
	if fs := native.FrameSize(); fs > 0 {
		dropped += s.ring.Dropped() * ringAlignment / uint64(fs)
	}
	diag := SessionDiagnostics{DroppedFrames: dropped}
	if impl != nil {
		backendDiag := impl.Diagnostics()
		diag.Strategy = backendDiag.Strategy
	}
	return diag
}

// Stop idempotently transitions Running → Stopping → Stopped, draining and
// tearing down within StopDeadline regardless of OS-side state.
func (s *Session) Stop() error {
	var stopErr error
	s.stopOnce.Do(func() {
		s.mu.Lock()
		if s.state != StateRunning && s.state != StateStarting {
			s.mu.Unlock()
			return
		}
		s.state = StateStopping
		dispatcher := s.dispatcher
		impl := s.backendImpl
		s.mu.Unlock()

		g, _ := errgroup.WithContext(context.Background())
		g.Go(func() error {
			if dispatcher != nil {
				dispatcher.Stop()
			}
			return nil
		})
		g.Go(func() error {
			if impl != nil {
				return impl.Deactivate()
			}
			return nil
		})

		done := make(chan error, 1)
		go func() { done <- g.Wait() }()

		select {
		case err := <-done:
			stopErr = err
		case <-time.After(StopDeadline):
			stopErr = fmt.Errorf("proctap: stop did not complete within %s", StopDeadline)
		}

		s.mu.Lock()
		s.state = StateStopped
		close(s.chunks)
		s.mu.Unlock()
	})
	return stopErr
}

// Close calls Stop if necessary and releases remaining resources. After
// Close, the session is unusable; further operations return SessionClosed.
func (s *Session) Close() error {
	err := s.Stop()
	s.mu.Lock()
	s.state = StateStopped
	s.closed = true
	s.mu.Unlock()
	return err
}

func (s *Session) fail(err error) error {
	s.mu.Lock()
	s.state = StateFailed
	s.lastErr = err
	s.mu.Unlock()
	return err
}

func timeNowUnixNano() int64 {
	return time.Now().UnixNano()
}
