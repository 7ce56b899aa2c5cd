//go:build darwin

package darwin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"

	"github.com/proctap/proctap/internal/backend"
	"github.com/proctap/proctap/internal/diag"
	"github.com/proctap/proctap/internal/procaudio"
	"github.com/proctap/proctap/internal/procexec"
	"github.com/proctap/proctap/internal/ring"
)

func init() {
	backend.Register("darwin", newBackend)
}

const helperEnvOverride = "PROCTAP_MACOS_HELPER"
const helperName = "proctap-screencapture-helper"
const defaultSampleRate = 48000
const defaultChannels = 2
const stopDeadline = 500_000_000 // 500ms

// darwinBackend spawns and supervises the out-of-tree ScreenCaptureKit
// helper binary per spec.md §4.5. The helper itself (Swift/ObjC, built and
// signed outside this module) is out of scope; this package only resolves
// it, spawns it, and reads frame-aligned PCM off its stdout.
type darwinBackend struct {
	target    procaudio.Target
	requested *procaudio.Format
	r         *ring.Buffer
	log       procaudio.Logger

	diag *diag.Recorder

	mu   sync.Mutex
	proc *procexec.Process
}

func newBackend(target procaudio.Target, requested *procaudio.Format, r *ring.Buffer, log procaudio.Logger) (backend.Backend, error) {
	return &darwinBackend{target: target, requested: requested, r: r, log: log, diag: diag.NewRecorder(diag.DefaultCapacity)}, nil
}

func (b *darwinBackend) Supported() bool { return runtime.GOOS == "darwin" }

// format is the native format the helper is asked for: always float32
// (--format f32le), at the requested rate and channel count where those
// are non-zero.
func (b *darwinBackend) format() procaudio.Format {
	f := procaudio.Format{SampleRate: defaultSampleRate, Channels: defaultChannels, SampleFormat: procaudio.FormatFloat32}
	if b.requested != nil {
		if b.requested.SampleRate != 0 {
			f.SampleRate = b.requested.SampleRate
		}
		if b.requested.Channels != 0 {
			f.Channels = b.requested.Channels
		}
	}
	return f
}

func (b *darwinBackend) Activate(ctx context.Context) (procaudio.Format, error) {
	bundleID, err := b.resolveBundleID()
	if err != nil {
		return procaudio.Format{}, procaudio.NewError(procaudio.KindTargetNotFound, "darwin.activate", err)
	}

	helperPath, err := discoverHelper()
	if err != nil {
		return procaudio.Format{}, procaudio.NewError(procaudio.KindBackendUnavailable, "darwin.activate", err)
	}

	fmtOut := b.format()
	args := []string{
		"--bundle-id", bundleID,
		"--rate", strconv.FormatUint(uint64(fmtOut.SampleRate), 10),
		"--channels", strconv.FormatUint(uint64(fmtOut.Channels), 10),
		"--format", "f32le",
	}

	proc, err := procexec.Start(ctx, &procexec.Options{Path: helperPath, Args: args, Stderr: b.diag})
	if err != nil {
		return procaudio.Format{}, classifyHelperStartError(err)
	}

	b.mu.Lock()
	b.proc = proc
	b.mu.Unlock()

	go pumpStdout(proc, int(fmtOut.FrameSize()), b.r)

	return fmtOut, nil
}

func (b *darwinBackend) resolveBundleID() (string, error) {
	if b.target.Kind == procaudio.TargetBundleID {
		return b.target.BundleID, nil
	}
	return resolveBundleID(b.target.PID)
}

func (b *darwinBackend) Deactivate() error {
	b.mu.Lock()
	proc := b.proc
	b.proc = nil
	b.mu.Unlock()
	if proc == nil {
		return nil
	}
	return proc.Stop(stopDeadline)
}

func (b *darwinBackend) Diagnostics() procaudio.SessionDiagnostics {
	return procaudio.SessionDiagnostics{Strategy: "screencapturekit-helper", DroppedFrames: b.r.Dropped()}
}

// discoverHelper implements spec.md §4.5's lookup order:
// PROCTAP_MACOS_HELPER override, else a path relative to the running
// executable.
func discoverHelper() (string, error) {
	if p := os.Getenv(helperEnvOverride); p != "" {
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("darwin: %s=%s: %w", helperEnvOverride, p, err)
		}
		return p, nil
	}

	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("darwin: resolve own executable path: %w", err)
	}
	candidate := filepath.Join(filepath.Dir(exe), helperName)
	if _, err := os.Stat(candidate); err != nil {
		return "", fmt.Errorf("darwin: helper not found at %s and %s unset", candidate, helperEnvOverride)
	}
	return candidate, nil
}

func classifyHelperStartError(err error) error {
	return procaudio.NewError(procaudio.KindBackendUnavailable, "darwin.activate", err)
}

func pumpStdout(proc *procexec.Process, frameSize int, r *ring.Buffer) {
	stdout := proc.Stdout()
	buf := make([]byte, frameSize*512)
	for {
		n, err := stdout.Read(buf)
		if n > 0 {
			aligned := n - n%frameSize
			if aligned > 0 {
				r.Write(buf[:aligned])
			}
		}
		if err != nil {
			return
		}
	}
}
