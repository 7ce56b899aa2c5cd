//go:build linux

package linux

import (
	"io"

	"github.com/proctap/proctap/internal/diag"
	"github.com/proctap/proctap/internal/procexec"
	"github.com/proctap/proctap/internal/ring"
)

// diagRecorder is an alias kept local to this package so strategy files
// don't each import internal/diag directly.
type diagRecorder = diag.Recorder

const stopDeadline = 500_000_000 // 500ms, in time.Duration's int64 ns units

// pumpStdout reads frame-aligned bytes off a subprocess's stdout into the
// ring until EOF, skipping skipHeader bytes first (pw-record's WAV header;
// zero for parec, which is already headerless).
func pumpStdout(proc *procexec.Process, frameSize, skipHeader int, r *ring.Buffer) {
	stdout := proc.Stdout()
	if skipHeader > 0 {
		_, _ = io.CopyN(io.Discard, stdout, int64(skipHeader))
	}

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
