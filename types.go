package proctap

import "github.com/proctap/proctap/internal/procaudio"

// Re-exported as aliases so callers never need to import internal/procaudio
// directly; it stays internal because internal/backend also depends on it
// and a Go import cycle would otherwise force the data model and the
// façade into the same package.
type (
	Target          = procaudio.Target
	TargetKind       = procaudio.TargetKind
	SampleFormat    = procaudio.SampleFormat
	Format          = procaudio.Format
	Chunk           = procaudio.Chunk
	ResampleQuality = procaudio.ResampleQuality
	State           = procaudio.State
	SessionDiagnostics = procaudio.SessionDiagnostics
	ErrorKind       = procaudio.ErrorKind
	Error           = procaudio.Error
	Logger          = procaudio.Logger
)

const (
	TargetPID      = procaudio.TargetPID
	TargetBundleID = procaudio.TargetBundleID

	FormatInt16   = procaudio.FormatInt16
	FormatInt24   = procaudio.FormatInt24
	FormatInt32   = procaudio.FormatInt32
	FormatFloat32 = procaudio.FormatFloat32

	QualityBest   = procaudio.QualityBest
	QualityMedium = procaudio.QualityMedium
	QualityFast   = procaudio.QualityFast

	StateCreated   = procaudio.StateCreated
	StateStarting  = procaudio.StateStarting
	StateRunning   = procaudio.StateRunning
	StateStopping  = procaudio.StateStopping
	StateStopped   = procaudio.StateStopped
	StateFailed    = procaudio.StateFailed

	KindInvalidTarget      = procaudio.KindInvalidTarget
	KindTargetNotFound     = procaudio.KindTargetNotFound
	KindUnsupportedOS      = procaudio.KindUnsupportedOS
	KindPermissionDenied   = procaudio.KindPermissionDenied
	KindBackendUnavailable = procaudio.KindBackendUnavailable
	KindBackendTimeout     = procaudio.KindBackendTimeout
	KindBackendLost        = procaudio.KindBackendLost
	KindFormatUnsupported  = procaudio.KindFormatUnsupported
	KindSessionStopped     = procaudio.KindSessionStopped
	KindSessionClosed      = procaudio.KindSessionClosed
	KindInternal           = procaudio.KindInternal
)

var (
	NewPIDTarget      = procaudio.NewPIDTarget
	NewBundleIDTarget = procaudio.NewBundleIDTarget
	ParseResampleQuality = procaudio.ParseResampleQuality
	NewLogger         = procaudio.NewLogger

	ErrInvalidTarget      = procaudio.ErrInvalidTarget
	ErrTargetNotFound     = procaudio.ErrTargetNotFound
	ErrUnsupportedOS      = procaudio.ErrUnsupportedOS
	ErrPermissionDenied   = procaudio.ErrPermissionDenied
	ErrBackendUnavailable = procaudio.ErrBackendUnavailable
	ErrBackendTimeout     = procaudio.ErrBackendTimeout
	ErrBackendLost        = procaudio.ErrBackendLost
	ErrFormatUnsupported  = procaudio.ErrFormatUnsupported
	ErrSessionStopped     = procaudio.ErrSessionStopped
	ErrSessionClosed      = procaudio.ErrSessionClosed
	ErrInternal           = procaudio.ErrInternal
)
