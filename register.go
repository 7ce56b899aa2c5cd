package proctap

// Blank-imported so each OS package's init() registers itself into
// internal/backend's runtime.GOOS-keyed registry. Every package compiles on
// every GOOS: the build-tagged file matching the current GOOS provides the
// real implementation, the others provide a Supported()==false stub.
import (
	_ "github.com/proctap/proctap/internal/backend/darwin"
	_ "github.com/proctap/proctap/internal/backend/linux"
	_ "github.com/proctap/proctap/internal/backend/windows"
)
