//go:build !windows
// +build !windows

package procexec

import (
	"os"
	"syscall"
)

// setupProcessGroup puts the subprocess in its own process group so a
// deadline kill can take its children with it.
func setupProcessGroup(cmd Commander) {
	cmd.SetSysProcAttr(&syscall.SysProcAttr{Setpgid: true})
}

// killProcessGroup force-kills the subprocess's entire process group.
func killProcessGroup(cmd Commander) error {
	proc := cmd.Process()
	if proc == nil {
		return nil
	}
	return syscall.Kill(-proc.Pid, syscall.SIGKILL)
}

// terminateProcess asks the subprocess to shut down gracefully.
func terminateProcess(proc *os.Process) error {
	return proc.Signal(syscall.SIGTERM)
}
