//go:build linux

package linux

import (
	"context"
	"fmt"
	"strconv"

	"github.com/proctap/proctap/internal/procaudio"
	"github.com/proctap/proctap/internal/procexec"
	"github.com/proctap/proctap/internal/ring"
)

// wavHeaderSize is the canonical 44-byte RIFF/WAVE header pw-record prefixes
// its stdout with when no --format-raw flag is given; skipped once before
// the first Write so downstream frame-alignment isn't corrupted by it.
const wavHeaderSize = 44

// pwRecordStrategy spawns `pw-record --target <nodeID>`, the second tier of
// spec.md §4.4's chain: the same node discovered for the native stream
// strategy, but captured via the CLI tool instead of linking libpipewire.
type pwRecordStrategy struct {
	proc *procexec.Process
}

func startPWRecordStrategy(ctx context.Context, nodeID uint32, format procaudio.Format, r *ring.Buffer, diag *diagRecorder) (*pwRecordStrategy, error) {
	args := []string{
		"--target", strconv.FormatUint(uint64(nodeID), 10),
		"--rate", strconv.FormatUint(uint64(format.SampleRate), 10),
		"--channels", strconv.FormatUint(uint64(format.Channels), 10),
		"--format", "f32",
		"-",
	}
	proc, err := procexec.Start(ctx, &procexec.Options{Path: "pw-record", Args: args, Stderr: diag})
	if err != nil {
		return nil, fmt.Errorf("linux: start pw-record: %w", err)
	}

	s := &pwRecordStrategy{proc: proc}
	frameSize := int(format.FrameSize())
	go pumpStdout(proc, frameSize, wavHeaderSize, r)
	return s, nil
}

func (s *pwRecordStrategy) stop() error {
	return s.proc.Stop(stopDeadline)
}
