package proctap

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proctap/proctap/internal/procaudio"
	"github.com/proctap/proctap/internal/ring"
)

// fakeBackend is a hand-written stand-in for backend.Backend: the interface
// is small enough that a direct fake is clearer than a testify mock, and it
// lets tests push bytes into the session's ring on a schedule they control.
type fakeBackend struct {
	mu         sync.Mutex
	r          *ring.Buffer
	format     procaudio.Format
	activateErr error
	deactivated bool
}

func (f *fakeBackend) Supported() bool { return true }

func (f *fakeBackend) Activate(ctx context.Context) (procaudio.Format, error) {
	if f.activateErr != nil {
		return procaudio.Format{}, f.activateErr
	}
	return f.format, nil
}

func (f *fakeBackend) Deactivate() error {
	f.mu.Lock()
	f.deactivated = true
	f.mu.Unlock()
	return nil
}

func (f *fakeBackend) Diagnostics() procaudio.SessionDiagnostics {
	return procaudio.SessionDiagnostics{Strategy: "fake"}
}

func openForTest(t *testing.T, opts *Options) *Session {
	t.Helper()
	s, err := Open(NewPIDTarget(1234), opts)
	require.NoError(t, err)
	return s
}

func TestOpenValidatesTarget(t *testing.T) {
	_, err := Open(Target{}, nil)
	require.Error(t, err)

	var pErr *Error
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, KindInvalidTarget, pErr.Kind)

	_, err = Open(NewBundleIDTarget(""), nil)
	require.Error(t, err)
}

func TestSessionStartsCreated(t *testing.T) {
	s := openForTest(t, nil)
	assert.False(t, s.IsRunning())

	diag := s.Diagnostics()
	assert.Equal(t, uint64(0), diag.DroppedFrames)
}

func TestReadTimesOutWithoutData(t *testing.T) {
	s := openForTest(t, nil)
	s.state = StateRunning

	start := time.Now()
	chunk, ok, err := s.Read(20 * time.Millisecond)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, Chunk{}, chunk)
	assert.GreaterOrEqual(t, elapsed, 20*time.Millisecond)
}

func TestReadReturnsChunkWhenDelivered(t *testing.T) {
	s := openForTest(t, nil)
	s.state = StateRunning

	want := Chunk{Data: []byte{1, 2, 3, 4}, Frames: 1, Seq: 1}
	s.chunks <- want

	got, ok, err := s.Read(time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestReadIsExclusiveWithCallback(t *testing.T) {
	s := openForTest(t, nil)
	s.state = StateRunning
	s.SetCallback(func(Chunk) {})

	s.chunks <- Chunk{Seq: 1}

	_, ok, err := s.Read(time.Second)
	require.NoError(t, err)
	assert.False(t, ok, "Read must not return data once a callback is registered")
}

func TestReadOnStoppedSessionReturnsSessionStopped(t *testing.T) {
	s := openForTest(t, nil)
	s.state = StateStopped

	_, ok, err := s.Read(time.Millisecond)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrSessionStopped)
}

func TestStopIsIdempotent(t *testing.T) {
	s := openForTest(t, nil)
	s.state = StateRunning
	s.dispatcher = ring.NewDispatcher(s.ring, 8, 48000, 0)
	fb := &fakeBackend{r: s.ring}
	s.backendImpl = fb

	go s.dispatcher.Run()

	err1 := s.Stop()
	err2 := s.Stop()

	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.True(t, fb.deactivated)

	_, ok, err := s.Read(time.Millisecond)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrSessionStopped)
}

func TestCloseAfterStopReturnsNoError(t *testing.T) {
	s := openForTest(t, nil)
	s.state = StateRunning
	s.dispatcher = ring.NewDispatcher(s.ring, 8, 48000, 0)
	s.backendImpl = &fakeBackend{r: s.ring}

	go s.dispatcher.Run()

	require.NoError(t, s.Stop())
	require.NoError(t, s.Close())
}

func TestOperationsAfterCloseReturnSessionClosed(t *testing.T) {
	s := openForTest(t, nil)
	s.state = StateRunning
	s.dispatcher = ring.NewDispatcher(s.ring, 8, 48000, 0)
	s.backendImpl = &fakeBackend{r: s.ring}

	go s.dispatcher.Run()

	require.NoError(t, s.Close())

	_, ok, err := s.Read(time.Millisecond)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.NotErrorIs(t, err, ErrSessionStopped)

	err = s.SetCallback(func(Chunk) {})
	assert.ErrorIs(t, err, ErrSessionClosed)

	_, err = s.NativeFormat()
	assert.ErrorIs(t, err, ErrSessionClosed)

	err = s.Start(context.Background())
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestNativeFormatRequiresRunning(t *testing.T) {
	s := openForTest(t, nil)

	_, err := s.NativeFormat()
	require.Error(t, err)

	s.state = StateRunning
	s.nativeFmt = Format{SampleRate: 48000, Channels: 2, SampleFormat: FormatFloat32}

	f, err := s.NativeFormat()
	require.NoError(t, err)
	assert.Equal(t, uint32(48000), f.SampleRate)
}
