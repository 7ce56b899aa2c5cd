//go:build windows

package windows

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/proctap/proctap/internal/backend"
	"github.com/proctap/proctap/internal/procaudio"
	"github.com/proctap/proctap/internal/ring"
)

func init() {
	backend.Register("windows", newBackend)
}

const activationTimeout = 5 * time.Second

// IAudioClient vtable indices (IUnknown's three plus the interface's own,
// in declaration order per audioclient.h).
const (
	idxInitialize     = 3
	idxGetBufferSize  = 4
	idxGetMixFormat   = 8
	idxGetService     = 14
	idxStart          = 10
	idxStop           = 11
	idxSetEventHandle = 13
)

// IAudioCaptureClient vtable indices.
const (
	idxGetBuffer         = 3
	idxReleaseBuffer     = 4
	idxGetNextPacketSize = 5
)

// IID_IAudioCaptureClient, {C8ADBD64-E71E-48a0-A4DE-185C395CD317}.
var iidIAudioCaptureClient = comGUID{0xC8ADBD64, 0xE71E, 0x48a0, [8]byte{0xA4, 0xDE, 0x18, 0x5C, 0x39, 0x5C, 0xD3, 0x17}}

const (
	audclntStreamflagsLoopback      = 0x00020000
	audclntStreamflagsEventCallback = 0x00040000
	audclntShareModeShared          = 0
	audclntBufferflagsSilent        = 0x2
	audclntEDeviceInvalidated       = 0x88890004
)

// winBackend implements backend.Backend over process-scoped WASAPI
// loopback, built with the pure-syscall COM technique in comutil_windows.go
// and activation.go — no cgo anywhere in this package.
type winBackend struct {
	target    procaudio.Target
	requested *procaudio.Format
	r         *ring.Buffer
	log       procaudio.Logger

	mu          sync.Mutex
	audioClient uintptr
	captureIf   uintptr
	eventHandle uintptr

	running atomic.Bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	dropped atomic.Uint64
}

func newBackend(target procaudio.Target, requested *procaudio.Format, r *ring.Buffer, log procaudio.Logger) (backend.Backend, error) {
	if target.Kind != procaudio.TargetPID {
		return nil, procaudio.NewError(procaudio.KindInvalidTarget, "windows.new", fmt.Errorf("windows backend only supports PID targets"))
	}
	return &winBackend{target: target, requested: requested, r: r, log: log}, nil
}

func (b *winBackend) Supported() bool {
	return procActivateAudioInterfaceAsync.Find() == nil
}

func (b *winBackend) Activate(ctx context.Context) (procaudio.Format, error) {
	if !b.Supported() {
		return procaudio.Format{}, procaudio.NewError(procaudio.KindUnsupportedOS, "windows.activate", fmt.Errorf("ActivateAudioInterfaceAsync unavailable on this build"))
	}

	hr, _, _ := procCoInitializeEx.Call(0, uintptr(coinitMultithreaded))
	if int32(hr) < 0 && uint32(hr) != 0x80010106 { // RPC_E_CHANGED_MODE: already init'd differently, tolerable
		b.log.Warn("windows: CoInitializeEx returned 0x%08X", uint32(hr))
	}

	deadline := activationTimeout
	if dl, ok := ctx.Deadline(); ok {
		if remaining := time.Until(dl); remaining > 0 && remaining < deadline {
			deadline = remaining
		}
	}

	client, err := activateProcessLoopback(b.target.PID, true, deadline)
	if err != nil {
		return procaudio.Format{}, err
	}
	b.mu.Lock()
	b.audioClient = client
	b.mu.Unlock()

	mix, mixPtr, err := b.getMixFormat()
	if err != nil {
		b.teardownLocked()
		return procaudio.Format{}, err
	}
	defer procCoTaskMemFree.Call(mixPtr)

	evt, _, _ := procCreateEventW.Call(0, 0, 0, 0)
	if evt == 0 {
		b.teardownLocked()
		return procaudio.Format{}, procaudio.NewError(procaudio.KindInternal, "windows.activate", fmt.Errorf("CreateEventW failed"))
	}
	b.eventHandle = evt

	const bufferDuration = 200 * time.Millisecond
	hnsBufferDuration := int64(bufferDuration / 100) // REFERENCE_TIME units (100ns)

	_, callErr := comCall(client, idxInitialize,
		uintptr(audclntShareModeShared),
		uintptr(audclntStreamflagsLoopback|audclntStreamflagsEventCallback),
		uintptr(hnsBufferDuration),
		0,
		uintptr(mixPtr),
		0,
	)
	if callErr != nil {
		b.teardownLocked()
		return procaudio.Format{}, procaudio.NewError(procaudio.KindBackendUnavailable, "windows.activate", callErr)
	}

	_, callErr = comCall(client, idxSetEventHandle, evt)
	if callErr != nil {
		b.log.Warn("windows: SetEventHandle failed, falling back to polling: %v", callErr)
		b.eventHandle = 0
	}

	var captureIf uintptr
	_, callErr = comCall(client, idxGetService, uintptr(unsafe.Pointer(&iidIAudioCaptureClient)), uintptr(unsafe.Pointer(&captureIf)))
	if callErr != nil {
		b.teardownLocked()
		return procaudio.Format{}, procaudio.NewError(procaudio.KindBackendUnavailable, "windows.activate", callErr)
	}
	b.mu.Lock()
	b.captureIf = captureIf
	b.mu.Unlock()

	if _, callErr = comCall(client, idxStart); callErr != nil {
		b.teardownLocked()
		return procaudio.Format{}, procaudio.NewError(procaudio.KindBackendUnavailable, "windows.activate", callErr)
	}

	b.stopCh = make(chan struct{})
	b.doneCh = make(chan struct{})
	b.running.Store(true)
	go b.pump(mix)

	return mix, nil
}

func (b *winBackend) getMixFormat() (procaudio.Format, uintptr, error) {
	var wfxPtr uintptr
	b.mu.Lock()
	client := b.audioClient
	b.mu.Unlock()
	_, err := comCall(client, idxGetMixFormat, uintptr(unsafe.Pointer(&wfxPtr)))
	if err != nil {
		return procaudio.Format{}, 0, procaudio.NewError(procaudio.KindBackendUnavailable, "windows.getMixFormat", err)
	}
	wfx := (*waveFormatEx)(unsafe.Pointer(wfxPtr))

	sampleFormat := procaudio.FormatInt16
	switch {
	case wfx.FormatTag == waveFormatIEEEFloat:
		sampleFormat = procaudio.FormatFloat32
	case wfx.BitsPerSample == 32:
		sampleFormat = procaudio.FormatInt32
	case wfx.BitsPerSample == 24:
		sampleFormat = procaudio.FormatInt24
	case wfx.BitsPerSample == 16:
		sampleFormat = procaudio.FormatInt16
	default:
		return procaudio.Format{}, wfxPtr, procaudio.NewError(procaudio.KindFormatUnsupported, "windows.getMixFormat", fmt.Errorf("unsupported bit depth %d", wfx.BitsPerSample))
	}

	return procaudio.Format{
		SampleRate:   wfx.SamplesPerSec,
		Channels:     uint8(wfx.Channels),
		SampleFormat: sampleFormat,
	}, wfxPtr, nil
}

// pump is the capture worker: either event-waits or polls GetNextPacketSize,
// copying whatever WASAPI hands back into the ring, zero-filling silent
// packets per the AUDCLNT_BUFFERFLAGS_SILENT contract.
func (b *winBackend) pump(format procaudio.Format) {
	defer close(b.doneCh)

	frameSize := int(format.FrameSize())
	pollInterval := 10 * time.Millisecond

	for {
		select {
		case <-b.stopCh:
			return
		default:
		}

		if b.eventHandle != 0 {
			ret, _, _ := procWaitForSingleObject.Call(b.eventHandle, 200)
			if ret != waitObject0 {
				continue
			}
		} else {
			time.Sleep(pollInterval)
		}

		for {
			var packetFrames uint32
			b.mu.Lock()
			captureIf := b.captureIf
			b.mu.Unlock()
			if captureIf == 0 {
				return
			}
			ret, err := comCall(captureIf, idxGetNextPacketSize, uintptr(unsafe.Pointer(&packetFrames)))
			if err != nil {
				if uint32(ret) == audclntEDeviceInvalidated {
					b.log.Error("windows: device invalidated, target process likely exited")
				}
				return
			}
			if packetFrames == 0 {
				break
			}

			var dataPtr uintptr
			var framesAvailable uint32
			var flags uint32
			_, err = comCall(captureIf, idxGetBuffer,
				uintptr(unsafe.Pointer(&dataPtr)),
				uintptr(unsafe.Pointer(&framesAvailable)),
				uintptr(unsafe.Pointer(&flags)),
				0, 0,
			)
			if err != nil {
				return
			}

			n := int(framesAvailable) * frameSize
			if flags&audclntBufferflagsSilent != 0 || dataPtr == 0 {
				silence := make([]byte, n)
				b.r.Write(silence)
			} else {
				buf := unsafe.Slice((*byte)(unsafe.Pointer(dataPtr)), n)
				b.r.Write(buf)
			}

			if _, err = comCall(captureIf, idxReleaseBuffer, uintptr(framesAvailable)); err != nil {
				return
			}
		}
	}
}

func (b *winBackend) Deactivate() error {
	if b.running.CompareAndSwap(true, false) {
		close(b.stopCh)
		<-b.doneCh
	}
	b.teardownLocked()
	return nil
}

func (b *winBackend) teardownLocked() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.audioClient != 0 {
		comCall(b.audioClient, idxStop)
	}
	comRelease(b.captureIf)
	comRelease(b.audioClient)
	b.captureIf = 0
	b.audioClient = 0
	if b.eventHandle != 0 {
		procCloseHandle.Call(b.eventHandle)
		b.eventHandle = 0
	}
}

func (b *winBackend) Diagnostics() procaudio.SessionDiagnostics {
	return procaudio.SessionDiagnostics{Strategy: "wasapi-process-loopback", DroppedFrames: b.r.Dropped()}
}
