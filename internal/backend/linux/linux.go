//go:build linux

package linux

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/proctap/proctap/internal/backend"
	"github.com/proctap/proctap/internal/diag"
	"github.com/proctap/proctap/internal/procaudio"
	"github.com/proctap/proctap/internal/ring"
)

func init() {
	backend.Register("linux", newBackend)
}

const defaultSampleRate = 48000
const defaultChannels = 2

// linuxBackend implements spec.md §4.4's three-strategy chain: native
// PipeWire stream, pw-record subprocess, PulseAudio null-sink + parec.
type linuxBackend struct {
	target    procaudio.Target
	requested *procaudio.Format
	r         *ring.Buffer
	log       procaudio.Logger

	diag *diag.Recorder

	mu       sync.Mutex
	strategy string
	pw       *pwStream
	pwRec    *pwRecordStrategy
	pulse    *pulseStrategy

	dropped atomic.Uint64
}

func newBackend(target procaudio.Target, requested *procaudio.Format, r *ring.Buffer, log procaudio.Logger) (backend.Backend, error) {
	if target.Kind != procaudio.TargetPID {
		return nil, procaudio.NewError(procaudio.KindInvalidTarget, "linux.new", fmt.Errorf("linux backend only supports PID targets"))
	}
	return &linuxBackend{target: target, requested: requested, r: r, log: log, diag: diag.NewRecorder(diag.DefaultCapacity)}, nil
}

func (b *linuxBackend) Supported() bool { return true }

// format is the native format every strategy captures in: always float32,
// at the requested rate and channel count where those are non-zero.
func (b *linuxBackend) format() procaudio.Format {
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

func (b *linuxBackend) Activate(ctx context.Context) (procaudio.Format, error) {
	fmtOut := b.format()

	nodeID, discoverErr := discoverNodeID(ctx, b.target.PID)

	var errs []error

	if discoverErr == nil {
		if pw, err := newPWStream(nodeID, fmtOut.SampleRate, uint32(fmtOut.Channels), func(data []byte) { b.r.Write(data) }); err == nil {
			pw.Start()
			b.mu.Lock()
			b.pw = pw
			b.strategy = "pipewire-native"
			b.mu.Unlock()
			b.log.Info("linux: native PipeWire stream attached to node %d", nodeID)
			return fmtOut, nil
		} else {
			errs = append(errs, fmt.Errorf("native stream: %w", err))
		}

		if rec, err := startPWRecordStrategy(ctx, nodeID, fmtOut, b.r, b.diag); err == nil {
			b.mu.Lock()
			b.pwRec = rec
			b.strategy = "pw-record"
			b.mu.Unlock()
			b.log.Info("linux: pw-record attached to node %d", nodeID)
			return fmtOut, nil
		} else {
			errs = append(errs, fmt.Errorf("pw-record: %w", err))
		}
	} else {
		errs = append(errs, fmt.Errorf("node discovery: %w", discoverErr))
	}

	if p, err := startPulseStrategy(ctx, b.target.PID, fmtOut, b.r, b.diag); err == nil {
		b.mu.Lock()
		b.pulse = p
		b.strategy = "pulseaudio-null-sink"
		b.mu.Unlock()
		b.log.Info("linux: PulseAudio null-sink strategy attached")
		return fmtOut, nil
	} else {
		errs = append(errs, fmt.Errorf("pulseaudio: %w", err))
	}

	return procaudio.Format{}, procaudio.NewError(procaudio.KindBackendUnavailable, "linux.activate", errors.Join(errs...))
}

func (b *linuxBackend) Deactivate() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var err error
	if b.pw != nil {
		err = errors.Join(err, b.pw.Close())
		b.pw = nil
	}
	if b.pwRec != nil {
		err = errors.Join(err, b.pwRec.stop())
		b.pwRec = nil
	}
	if b.pulse != nil {
		err = errors.Join(err, b.pulse.stop())
		b.pulse = nil
	}
	return err
}

func (b *linuxBackend) Diagnostics() procaudio.SessionDiagnostics {
	b.mu.Lock()
	strategy := b.strategy
	b.mu.Unlock()
	return procaudio.SessionDiagnostics{Strategy: strategy, DroppedFrames: b.r.Dropped()}
}
