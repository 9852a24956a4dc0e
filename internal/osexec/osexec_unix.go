//go:build !windows

package osexec

import (
	"os/exec"
	"syscall"
)

func disableInterruptSignal(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}

	// put the copier in its own process group so a signal sent to this
	// process's group (e.g. an interactive Ctrl+C) does not also reach it;
	// the orchestrator kills jobs explicitly via Kill.
	cmd.SysProcAttr.Setpgid = true
}

func kill(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}

	// negative pid targets the whole process group created by Setpgid above.
	if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err == nil {
		return nil
	}

	return cmd.Process.Kill()
}
