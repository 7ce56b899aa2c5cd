//go:build darwin

package darwin

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	psprocess "github.com/shirou/gopsutil/v3/process"
	"howett.net/plist"
)

// resolveBundleID walks a PID's executable path up to the nearest .app
// bundle directory and reads CFBundleIdentifier out of its Info.plist.
// Grounded on SPEC_FULL §4.5: gopsutil for the executable path, howett.net/plist
// for the binary-or-XML plist read, no ObjC/Cocoa call needed for this
// specific lookup.
func resolveBundleID(pid uint32) (string, error) {
	proc, err := psprocess.NewProcess(int32(pid))
	if err != nil {
		return "", fmt.Errorf("darwin: process %d not found: %w", pid, err)
	}
	exePath, err := proc.Exe()
	if err != nil {
		return "", fmt.Errorf("darwin: resolve executable path for pid %d: %w", pid, err)
	}

	bundleDir, err := nearestAppBundle(exePath)
	if err != nil {
		return "", err
	}

	plistPath := filepath.Join(bundleDir, "Contents", "Info.plist")
	data, err := os.ReadFile(plistPath)
	if err != nil {
		return "", fmt.Errorf("darwin: read %s: %w", plistPath, err)
	}

	var info struct {
		CFBundleIdentifier string `plist:"CFBundleIdentifier"`
	}
	if _, err := plist.Unmarshal(data, &info); err != nil {
		return "", fmt.Errorf("darwin: parse %s: %w", plistPath, err)
	}
	if info.CFBundleIdentifier == "" {
		return "", fmt.Errorf("darwin: %s has no CFBundleIdentifier", plistPath)
	}
	return info.CFBundleIdentifier, nil
}

// nearestAppBundle walks path's ancestors looking for a directory ending in
// ".app", the bundle root that owns the running executable.
func nearestAppBundle(path string) (string, error) {
	dir := path
	for {
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		if strings.HasSuffix(dir, ".app") {
			return dir, nil
		}
		dir = parent
	}
	return "", fmt.Errorf("darwin: %s is not inside a .app bundle", path)
}
