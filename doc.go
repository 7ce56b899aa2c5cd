// Package proctap captures the audio a single process (and, on macOS, a
// single application bundle) is producing, without touching any other
// process's sound. It wraps a platform-specific backend — WASAPI
// process-loopback on Windows, a PipeWire/PulseAudio strategy chain on
// Linux, ScreenCaptureKit via a helper subprocess on macOS — behind one
// push/pull Session API and a format-normalization pipeline.
package proctap
