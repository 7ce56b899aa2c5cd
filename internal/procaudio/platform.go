package procaudio

import "runtime"

// OSName returns the current operating system name, as runtime.GOOS reports
// it and as backend.Registry keys its entries by.
func OSName() string {
	return runtime.GOOS
}

func IsWindowsOS() bool { return OSName() == "windows" }
func IsLinuxOS() bool   { return OSName() == "linux" }
func IsMacOS() bool     { return OSName() == "darwin" }
