//go:build windows

package windows

import (
	"fmt"
	"sync"
	"syscall"
	"time"
	"unsafe"

	"github.com/proctap/proctap/internal/procaudio"
)

// Process-loopback activation constants from the Windows SDK's
// audioclientactivationparams.h / mmdeviceapi.h, inlined here since no cgo
// headers are used anywhere else in this repo's Windows path.
const (
	audioclientActivationTypeProcessLoopback    = 1
	processLoopbackModeIncludeTargetProcessTree = 0
	processLoopbackModeExcludeTargetProcessTree = 1
	vtBlob                                       = 0x41
)

var virtualAudioDeviceProcessLoopback = syscall.StringToUTF16Ptr(`VAD\Process_Loopback`)

// audioClientProcessLoopbackParams mirrors AUDIOCLIENT_PROCESS_LOOPBACK_PARAMS.
type audioClientProcessLoopbackParams struct {
	TargetProcessID     uint32
	ProcessLoopbackMode uint32
}

// audioClientActivationParams mirrors AUDIOCLIENT_ACTIVATION_PARAMS's
// process-loopback union arm. The union holds only 4-byte fields, so it
// follows ActivationType at offset 4 with no padding.
type audioClientActivationParams struct {
	ActivationType uint32
	Loopback       audioClientProcessLoopbackParams
}

// propVariantBlob mirrors the VT_BLOB arm of PROPVARIANT, used to pass
// audioClientActivationParams through ActivateAudioInterfaceAsync.
type propVariantBlob struct {
	vt     uint16
	res1   uint16
	res2   uint16
	res3   uint16
	cbSize uint32
	_      uint32
	pData  uintptr
}

// completionSink is a minimal, hand-built COM object implementing
// IActivateAudioInterfaceCompletionHandler: a 4-slot vtable (IUnknown's
// three methods plus ActivateCompleted) of syscall.NewCallback trampolines,
// addressed the same way comCall addresses a real COM interface — a
// pointer to a pointer to the vtable.
type completionSink struct {
	vtbl [4]uintptr
	ppv  *uintptr // &vtbl[0]'s container; this is the COM "this" pointer

	done chan struct{}
	once sync.Once
}

var (
	callbacksOnce sync.Once

	sinkQueryInterfaceCB uintptr
	sinkAddRefCB         uintptr
	sinkReleaseCB        uintptr
	sinkActivateDoneCB   uintptr

	sinkMu      sync.Mutex
	activeSinks = map[uintptr]*completionSink{}
)

func ensureCallbacks() {
	callbacksOnce.Do(func() {
		sinkQueryInterfaceCB = syscall.NewCallback(func(this, _riid, ppv uintptr) uintptr {
			if ppv != 0 {
				*(*uintptr)(unsafe.Pointer(ppv)) = this
			}
			return 0
		})
		sinkAddRefCB = syscall.NewCallback(func(this uintptr) uintptr { return 1 })
		sinkReleaseCB = syscall.NewCallback(func(this uintptr) uintptr { return 1 })
		sinkActivateDoneCB = syscall.NewCallback(func(this, _operation uintptr) uintptr {
			sinkMu.Lock()
			s := activeSinks[this]
			sinkMu.Unlock()
			if s != nil {
				s.once.Do(func() { close(s.done) })
			}
			return 0
		})
	})
}

// newCompletionSink allocates a sink and registers its "this" pointer so
// the package-level callback trampolines (which only receive a uintptr,
// not a Go closure environment) can look the owning *completionSink back
// up.
func newCompletionSink() *completionSink {
	ensureCallbacks()
	s := &completionSink{done: make(chan struct{})}
	s.vtbl = [4]uintptr{sinkQueryInterfaceCB, sinkAddRefCB, sinkReleaseCB, sinkActivateDoneCB}

	vtblPtr := uintptr(unsafe.Pointer(&s.vtbl[0]))
	s.ppv = &vtblPtr

	this := uintptr(unsafe.Pointer(s.ppv))
	sinkMu.Lock()
	activeSinks[this] = s
	sinkMu.Unlock()
	return s
}

func (s *completionSink) comThis() uintptr {
	return uintptr(unsafe.Pointer(s.ppv))
}

func (s *completionSink) release() {
	sinkMu.Lock()
	delete(activeSinks, s.comThis())
	sinkMu.Unlock()
}

// IID_IAudioClient, {1CB9AD4C-DBFA-4c32-B178-C2F568A703B2}.
var iidIAudioClient = comGUID{0x1CB9AD4C, 0xDBFA, 0x4c32, [8]byte{0xB1, 0x78, 0xC2, 0xF5, 0x68, 0xA7, 0x03, 0xB2}}

// activateProcessLoopback drives the activation sequence: build the
// process-loopback descriptor, call ActivateAudioInterfaceAsync, block on
// our completion sink up to timeout, and fetch the resulting IAudioClient.
func activateProcessLoopback(pid uint32, includeTree bool, timeout time.Duration) (audioClient uintptr, err error) {
	mode := uint32(processLoopbackModeIncludeTargetProcessTree)
	if !includeTree {
		mode = processLoopbackModeExcludeTargetProcessTree
	}

	params := audioClientActivationParams{
		ActivationType: audioclientActivationTypeProcessLoopback,
		Loopback: audioClientProcessLoopbackParams{
			TargetProcessID:     pid,
			ProcessLoopbackMode: mode,
		},
	}

	pv := propVariantBlob{
		vt:     vtBlob,
		cbSize: uint32(unsafe.Sizeof(params)),
		pData:  uintptr(unsafe.Pointer(&params)),
	}

	sink := newCompletionSink()
	defer sink.release()

	var operation uintptr
	hr, _, _ := procActivateAudioInterfaceAsync.Call(
		uintptr(unsafe.Pointer(virtualAudioDeviceProcessLoopback)),
		uintptr(unsafe.Pointer(&iidIAudioClient)),
		uintptr(unsafe.Pointer(&pv)),
		sink.comThis(),
		uintptr(unsafe.Pointer(&operation)),
	)
	if int32(hr) < 0 {
		return 0, fmt.Errorf("windows: ActivateAudioInterfaceAsync HRESULT 0x%08X", uint32(hr))
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-sink.done:
	case <-timer.C:
		return 0, procaudio.NewError(procaudio.KindBackendTimeout, "windows.activate", fmt.Errorf("activation did not complete within %s", timeout))
	}

	var activateResult uint32
	var iface uintptr
	// IActivateAudioInterfaceAsyncOperation::GetActivateResult, vtable
	// index 3 (first method after IUnknown's three).
	_, callErr := comCall(operation, 3,
		uintptr(unsafe.Pointer(&activateResult)),
		uintptr(unsafe.Pointer(&iface)),
	)
	comRelease(operation)
	if callErr != nil {
		return 0, callErr
	}
	if int32(activateResult) < 0 {
		return 0, classifyActivationHRESULT(activateResult)
	}
	return iface, nil
}

// classifyActivationHRESULT maps the HRESULTs spec §4.3's error table
// names to procaudio.ErrorKind.
func classifyActivationHRESULT(hr uint32) error {
	switch hr {
	case 0x80070005: // E_ACCESSDENIED
		return procaudio.NewError(procaudio.KindPermissionDenied, "windows.activate", fmt.Errorf("HRESULT 0x%08X", hr))
	case 0x80070057: // E_INVALIDARG — process not found / already exited
		return procaudio.NewError(procaudio.KindTargetNotFound, "windows.activate", fmt.Errorf("HRESULT 0x%08X", hr))
	default:
		return procaudio.NewError(procaudio.KindBackendUnavailable, "windows.activate", fmt.Errorf("HRESULT 0x%08X", hr))
	}
}
