//go:build !windows

package proc

import (
	"fmt"
	"os/exec"
	"syscall"
)

func configureGroupAttr(cmd *exec.Cmd) {
	// New process group with the child as leader, so one signal reaches the
	// server and any workers it forks.
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}

func configureDetachedAttr(cmd *exec.Cmd) {
	// New session: no controlling terminal, not a member of our group, keeps
	// running after the supervisor exits.
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true,
	}
}

func terminateGroup(pid int) error {
	return signalGroup(pid, syscall.SIGTERM)
}

func killGroup(pid int) error {
	return signalGroup(pid, syscall.SIGKILL)
}

func signalGroup(pid int, sig syscall.Signal) error {
	// Negative PID addresses the entire process group.
	if err := syscall.Kill(-pid, sig); err != nil {
		// Group delivery can fail when the leader already exited; fall back
		// to the individual process.
		if err2 := syscall.Kill(pid, sig); err2 != nil {
			return fmt.Errorf("failed to signal process group -%d: %v, also failed to signal process %d: %v", pid, err, pid, err2)
		}
	}
	return nil
}
