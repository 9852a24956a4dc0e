// Package osexec holds the handful of os/exec knobs the Copier Driver
// needs that aren't exposed by exec.Cmd directly: disabling signal
// propagation so a Ctrl+C aimed at the orchestrator doesn't also race to
// kill the in-flight copier process out from under our own kill logic, and
// a portable "kill the whole process tree" for timeout handling.
package osexec

import "os/exec"

// DisableInterruptSignal configures cmd so that interrupt/terminate signals
// delivered to the parent process group are not also delivered to cmd's
// child process; the orchestrator decides when and how to kill a copier
// job (forcefully, via Kill, on stop/timeout), not the OS's default
// process-group signal propagation.
func DisableInterruptSignal(cmd *exec.Cmd) {
	disableInterruptSignal(cmd)
}

// Kill terminates cmd's process and, where the platform supports it, its
// entire process tree, so a copier invocation that spawned helper threads
// or child processes doesn't leave orphans behind after a timeout or stop.
func Kill(cmd *exec.Cmd) error {
	return kill(cmd)
}
