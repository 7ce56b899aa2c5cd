//go:build !windows

package windows

import (
	"context"

	"github.com/proctap/proctap/internal/backend"
	"github.com/proctap/proctap/internal/procaudio"
	"github.com/proctap/proctap/internal/ring"
)

func init() {
	backend.Register("windows", newBackend)
}

type winBackend struct{}

func newBackend(procaudio.Target, *procaudio.Format, *ring.Buffer, procaudio.Logger) (backend.Backend, error) {
	return &winBackend{}, nil
}

func (b *winBackend) Supported() bool { return false }

func (b *winBackend) Activate(ctx context.Context) (procaudio.Format, error) {
	return procaudio.Format{}, procaudio.NewError(procaudio.KindUnsupportedOS, "windows.activate", nil)
}

func (b *winBackend) Deactivate() error { return nil }

func (b *winBackend) Diagnostics() procaudio.SessionDiagnostics { return procaudio.SessionDiagnostics{} }
