// Package backend defines the capability-set contract spec §4.2 models
// "audio backend" as — Supported/Activate/Deactivate, no virtual dispatch
// hierarchy beyond this one interface — plus the runtime.GOOS-keyed
// registry the façade uses to pick a concrete implementation without a
// compile-time switch spreading through its own package. Grounded on the
// teacher's factory-pattern comment in audio/interfaces.go.
package backend

import (
	"context"

	"github.com/proctap/proctap/internal/procaudio"
	"github.com/proctap/proctap/internal/ring"
)

// Backend is the contract the façade calls after construction.
type Backend interface {
	// Supported reports a static capability check (OS version, presence
	// of the required subsystem) without touching OS audio APIs.
	Supported() bool

	// Activate acquires OS resources enabling per-process capture and
	// begins pushing frame-aligned bytes into the ring passed at
	// construction. It returns the native format that will flow.
	Activate(ctx context.Context) (procaudio.Format, error)

	// Deactivate tears down OS resources. Idempotent; must not panic.
	Deactivate() error

	// Diagnostics exposes the observability fields SPEC_FULL §4.1
	// supplements onto the session (e.g. which Linux strategy won).
	// Implementations with nothing to report return the zero value.
	Diagnostics() procaudio.SessionDiagnostics
}

// Constructor builds a Backend for one capture attempt. Cheap; must not
// touch OS audio APIs (that happens in Activate).
type Constructor func(target procaudio.Target, requested *procaudio.Format, r *ring.Buffer, log procaudio.Logger) (Backend, error)

var registry = map[string]Constructor{}

// Register installs a constructor for the given runtime.GOOS value. Called
// from each per-OS backend package's init(), so importing
// internal/backend/windows (etc.) for side effect is what makes it
// available — mirroring the teacher's factory/DI registration idiom.
func Register(goos string, ctor Constructor) {
	registry[goos] = ctor
}

// ForPlatform returns the constructor registered for goos, or false if no
// backend registered itself for that platform.
func ForPlatform(goos string) (Constructor, bool) {
	ctor, ok := registry[goos]
	return ctor, ok
}
