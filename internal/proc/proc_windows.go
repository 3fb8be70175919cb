//go:build windows

package proc

import (
	"fmt"
	"os/exec"
	"syscall"
)

// Windows API constants
const (
	PROCESS_TERMINATE         = 0x0001
	PROCESS_QUERY_INFORMATION = 0x0400

	DETACHED_PROCESS = 0x00000008
)

// Windows API functions
var (
	kernel32             = syscall.NewLazyDLL("kernel32.dll")
	procOpenProcess      = kernel32.NewProc("OpenProcess")
	procTerminateProcess = kernel32.NewProc("TerminateProcess")
	procCloseHandle      = kernel32.NewProc("CloseHandle")
)

func configureGroupAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
	}
}

func configureDetachedAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP | DETACHED_PROCESS,
	}
}

func terminateGroup(pid int) error {
	// Windows has no graceful group signal; terminate the process directly.
	return killGroup(pid)
}

func killGroup(pid int) error {
	handle, _, err := procOpenProcess.Call(
		uintptr(PROCESS_TERMINATE|PROCESS_QUERY_INFORMATION),
		uintptr(0), // bInheritHandle = FALSE
		uintptr(pid),
	)
	if handle == 0 {
		return fmt.Errorf("failed to open process %d: %v", pid, err)
	}
	defer procCloseHandle.Call(handle)

	success, _, err := procTerminateProcess.Call(handle, uintptr(1))
	if success == 0 {
		return fmt.Errorf("failed to terminate process %d: %v", pid, err)
	}

	return nil
}
