//go:build !linux

package linux

import (
	"context"

	"github.com/proctap/proctap/internal/backend"
	"github.com/proctap/proctap/internal/procaudio"
	"github.com/proctap/proctap/internal/ring"
)

func init() {
	backend.Register("linux", newBackend)
}

type linuxBackend struct{}

func newBackend(procaudio.Target, *procaudio.Format, *ring.Buffer, procaudio.Logger) (backend.Backend, error) {
	return &linuxBackend{}, nil
}

func (b *linuxBackend) Supported() bool { return false }

func (b *linuxBackend) Activate(ctx context.Context) (procaudio.Format, error) {
	return procaudio.Format{}, procaudio.NewError(procaudio.KindUnsupportedOS, "linux.activate", nil)
}

func (b *linuxBackend) Deactivate() error { return nil }

func (b *linuxBackend) Diagnostics() procaudio.SessionDiagnostics { return procaudio.SessionDiagnostics{} }
