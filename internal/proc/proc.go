// Package proc holds the platform-specific pieces of child process control:
// process attributes for spawning the API server in its own group, attributes
// for launching the provider daemon fully detached, and group-wide signal
// delivery for graceful and forced termination.
package proc

import "os/exec"

// ConfigureGroup sets up cmd so the child runs in its own process group. The
// supervisor can then signal the whole group (server plus any workers it
// forks) on shutdown.
func ConfigureGroup(cmd *exec.Cmd) {
	configureGroupAttr(cmd)
}

// ConfigureDetached sets up cmd so the child survives the supervisor's own
// exit: a new session on Unix, a detached process group on Windows. Used for
// the provider daemon, whose lifetime is independent of ours.
func ConfigureDetached(cmd *exec.Cmd) {
	configureDetachedAttr(cmd)
}

// Terminate asks pid's process group to stop gracefully. On platforms with no
// graceful delivery this is a hard termination.
func Terminate(pid int) error {
	return terminateGroup(pid)
}

// Kill forcibly ends pid's process group.
func Kill(pid int) error {
	return killGroup(pid)
}
