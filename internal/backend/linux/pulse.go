//go:build linux

package linux

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/proctap/proctap/internal/procaudio"
	"github.com/proctap/proctap/internal/procexec"
	"github.com/proctap/proctap/internal/ring"
)

// pulseRetries and pulseRetryDelay mirror original_source/backends/linux.py's
// documented plan of retrying the sink-input move a few times with a short
// backoff, since PulseAudio can report a sink-input that's mid-teardown.
const (
	pulseRetries    = 3
	pulseRetryDelay = 150 * time.Millisecond
)

// pulseStrategy is the last-resort tier of spec.md §4.4: a null sink the
// target's sink-input is moved onto, captured via `parec` against that
// sink's monitor source.
type pulseStrategy struct {
	proc     *procexec.Process
	sinkName string
	moduleID string
}

func startPulseStrategy(ctx context.Context, pid uint32, format procaudio.Format, r *ring.Buffer, diag *diagRecorder) (*pulseStrategy, error) {
	sinkName := fmt.Sprintf("proctap_%d", pid)

	loadArgs := []string{"load-module", "module-null-sink",
		"sink_name=" + sinkName,
		fmt.Sprintf("rate=%d", format.SampleRate),
		fmt.Sprintf("channels=%d", format.Channels),
	}
	out, err := exec.CommandContext(ctx, "pactl", loadArgs...).Output()
	if err != nil {
		return nil, fmt.Errorf("linux: pactl load-module module-null-sink: %w", err)
	}
	moduleID := strings.TrimSpace(string(out))

	var moveErr error
	for attempt := 0; attempt < pulseRetries; attempt++ {
		sinkInputIdx, err := discoverSinkInput(ctx, pid)
		if err != nil {
			moveErr = err
			time.Sleep(pulseRetryDelay)
			continue
		}
		moveArgs := []string{"move-sink-input", strconv.Itoa(sinkInputIdx), sinkName}
		if out, err := exec.CommandContext(ctx, "pactl", moveArgs...).CombinedOutput(); err != nil {
			moveErr = fmt.Errorf("linux: pactl move-sink-input: %w (%s)", err, out)
			time.Sleep(pulseRetryDelay)
			continue
		}
		moveErr = nil
		break
	}
	if moveErr != nil {
		unloadNullSink(moduleID)
		return nil, fmt.Errorf("linux: could not move pid %d onto null sink after %d attempts: %w", pid, pulseRetries, moveErr)
	}

	args := []string{
		"--device=" + sinkName + ".monitor",
		"--format=float32le",
		fmt.Sprintf("--rate=%d", format.SampleRate),
		fmt.Sprintf("--channels=%d", format.Channels),
	}
	proc, err := procexec.Start(ctx, &procexec.Options{Path: "parec", Args: args, Stderr: diag})
	if err != nil {
		unloadNullSink(moduleID)
		return nil, fmt.Errorf("linux: start parec: %w", err)
	}

	s := &pulseStrategy{proc: proc, sinkName: sinkName, moduleID: moduleID}
	go pumpStdout(proc, int(format.FrameSize()), 0, r)
	return s, nil
}

func (s *pulseStrategy) stop() error {
	err := s.proc.Stop(stopDeadline)
	unloadNullSink(s.moduleID)
	return err
}

func unloadNullSink(moduleID string) {
	if moduleID == "" {
		return
	}
	_ = exec.Command("pactl", "unload-module", moduleID).Run()
}
