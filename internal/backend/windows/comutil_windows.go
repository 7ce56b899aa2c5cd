//go:build windows

package windows

import (
	"fmt"
	"syscall"
	"unsafe"
)

// comGUID is a COM GUID (128-bit), same field layout LanternOps-breeze's
// comutil_windows.go uses for Media Foundation GUIDs.
type comGUID struct {
	Data1 uint32
	Data2 uint16
	Data3 uint16
	Data4 [8]byte
}

// comCall invokes a COM vtable method at the given index. obj is a pointer
// to a COM interface (pointer to pointer to vtable).
func comCall(obj uintptr, vtableIdx int, args ...uintptr) (uintptr, error) {
	vtablePtr := *(*uintptr)(unsafe.Pointer(obj))
	fnPtr := *(*uintptr)(unsafe.Pointer(vtablePtr + uintptr(vtableIdx)*unsafe.Sizeof(uintptr(0))))
	allArgs := make([]uintptr, 0, 1+len(args))
	allArgs = append(allArgs, obj)
	allArgs = append(allArgs, args...)
	ret, _, _ := syscall.SyscallN(fnPtr, allArgs...)
	if int32(ret) < 0 {
		return ret, fmt.Errorf("windows: COM vtable[%d] HRESULT 0x%08X", vtableIdx, uint32(ret))
	}
	return ret, nil
}

// comRelease calls IUnknown::Release (vtable index 2).
func comRelease(obj uintptr) {
	if obj == 0 {
		return
	}
	vtablePtr := *(*uintptr)(unsafe.Pointer(obj))
	fnPtr := *(*uintptr)(unsafe.Pointer(vtablePtr + 2*unsafe.Sizeof(uintptr(0))))
	syscall.SyscallN(fnPtr, obj)
}

var (
	ole32DLL   = syscall.NewLazyDLL("ole32.dll")
	mmdevapi   = syscall.NewLazyDLL("mmdevapi.dll")
	kernel32   = syscall.NewLazyDLL("kernel32.dll")

	procCoInitializeEx          = ole32DLL.NewProc("CoInitializeEx")
	procCoTaskMemFree           = ole32DLL.NewProc("CoTaskMemFree")
	procActivateAudioInterfaceAsync = mmdevapi.NewProc("ActivateAudioInterfaceAsync")
	procCreateEventW             = kernel32.NewProc("CreateEventW")
	procWaitForSingleObject      = kernel32.NewProc("WaitForSingleObject")
	procSetEvent                 = kernel32.NewProc("SetEvent")
	procCloseHandle              = kernel32.NewProc("CloseHandle")
)

const (
	coinitMultithreaded = 0x0
	waitObject0         = 0
	waitTimeout         = 0x102
	infinite            = 0xFFFFFFFF
)

// waveFormatEx mirrors WAVEFORMATEX.
type waveFormatEx struct {
	FormatTag      uint16
	Channels       uint16
	SamplesPerSec  uint32
	AvgBytesPerSec uint32
	BlockAlign     uint16
	BitsPerSample  uint16
	CbSize         uint16
}

const (
	waveFormatIEEEFloat  = 0x0003
	waveFormatPCM        = 0x0001
	waveFormatExtensible = 0xFFFE
)
