//go:build !darwin

package darwin

import (
	"context"

	"github.com/proctap/proctap/internal/backend"
	"github.com/proctap/proctap/internal/procaudio"
	"github.com/proctap/proctap/internal/ring"
)

func init() {
	backend.Register("darwin", newBackend)
}

type darwinBackend struct{}

func newBackend(procaudio.Target, *procaudio.Format, *ring.Buffer, procaudio.Logger) (backend.Backend, error) {
	return &darwinBackend{}, nil
}

func (b *darwinBackend) Supported() bool { return false }

func (b *darwinBackend) Activate(ctx context.Context) (procaudio.Format, error) {
	return procaudio.Format{}, procaudio.NewError(procaudio.KindUnsupportedOS, "darwin.activate", nil)
}

func (b *darwinBackend) Deactivate() error { return nil }

func (b *darwinBackend) Diagnostics() procaudio.SessionDiagnostics { return procaudio.SessionDiagnostics{} }
