// Package procaudio holds the data model of the per-process audio capture
// façade: targets, the session State values, errors, logging, and the
// public Format/Chunk types shared by every backend and the conversion
// pipeline. The Session itself lives in the root proctap package.
package procaudio

import "fmt"

// TargetKind distinguishes the two ways a capture target can be identified.
type TargetKind uint8

const (
	TargetPID TargetKind = iota
	TargetBundleID
)

// Target identifies the process (or, on macOS, the application bundle)
// whose audio output a session should capture.
type Target struct {
	Kind     TargetKind
	PID      uint32
	BundleID string
}

// NewPIDTarget builds a target identified by process id.
func NewPIDTarget(pid uint32) Target {
	return Target{Kind: TargetPID, PID: pid}
}

// NewBundleIDTarget builds a target identified by macOS bundle id.
// Backends on other platforms reject this kind with ErrInvalidTarget.
func NewBundleIDTarget(id string) Target {
	return Target{Kind: TargetBundleID, BundleID: id}
}

func (t Target) String() string {
	switch t.Kind {
	case TargetBundleID:
		return fmt.Sprintf("bundle:%s", t.BundleID)
	default:
		return fmt.Sprintf("pid:%d", t.PID)
	}
}

// SampleFormat is the wire representation of one PCM sample.
type SampleFormat uint8

const (
	FormatInt16 SampleFormat = iota
	FormatInt24
	FormatInt32
	FormatFloat32
)

func (f SampleFormat) String() string {
	switch f {
	case FormatInt16:
		return "int16"
	case FormatInt24:
		return "int24"
	case FormatInt32:
		return "int32"
	case FormatFloat32:
		return "float32"
	default:
		return "unknown"
	}
}

// BytesPerSample returns the on-wire size of one sample in this format.
func (f SampleFormat) BytesPerSample() uint32 {
	switch f {
	case FormatInt16:
		return 2
	case FormatInt24:
		return 3
	case FormatInt32, FormatFloat32:
		return 4
	default:
		return 0
	}
}

// Format describes a PCM stream: rate, channel count, and sample encoding.
// Immutable for the lifetime of a session once negotiated.
type Format struct {
	SampleRate   uint32
	Channels     uint8
	SampleFormat SampleFormat
}

// FrameSize is the byte size of one frame (one sample per channel).
func (f Format) FrameSize() uint32 {
	return uint32(f.Channels) * f.SampleFormat.BytesPerSample()
}

func (f Format) Equal(other Format) bool {
	return f.SampleRate == other.SampleRate &&
		f.Channels == other.Channels &&
		f.SampleFormat == other.SampleFormat
}

func (f Format) String() string {
	return fmt.Sprintf("%dHz/%dch/%s", f.SampleRate, f.Channels, f.SampleFormat)
}

// Chunk is a frame-aligned slice of captured, possibly converted, PCM.
type Chunk struct {
	Data       []byte
	Frames     uint32
	Format     Format
	Seq        uint64
	CapturedAt int64 // unix nanoseconds; populated by the dispatcher
}

// Bytes asserts and returns the chunk's payload. It panics if the backing
// byte slice is not exactly Frames whole frames of Format, which would be an
// internal invariant violation rather than a caller error.
func (c Chunk) Bytes() []byte {
	want := int(c.Frames) * int(c.Format.FrameSize())
	if len(c.Data) != want {
		panic(fmt.Sprintf("procaudio: chunk invariant violated: len(Data)=%d want=%d", len(c.Data), want))
	}
	return c.Data
}

// ResampleQuality trades resample CPU cost against fidelity.
type ResampleQuality uint8

const (
	QualityBest ResampleQuality = iota
	QualityMedium
	QualityFast
)

func ParseResampleQuality(s string) (ResampleQuality, error) {
	switch s {
	case "best":
		return QualityBest, nil
	case "medium":
		return QualityMedium, nil
	case "fast":
		return QualityFast, nil
	default:
		return 0, fmt.Errorf("procaudio: unknown resample quality %q", s)
	}
}

// State is the session lifecycle state machine of §4.1.
type State uint8

const (
	StateCreated State = iota
	StateStarting
	StateRunning
	StateStopping
	StateStopped
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// SessionDiagnostics exposes read-only observability fields that don't
// affect the public contract: which Linux strategy activated, and how many
// frames the ring has discarded to overflow so far.
type SessionDiagnostics struct {
	Strategy      string
	DroppedFrames uint64
}
