//go:build windows

package osexec

import (
	"os/exec"
	"strconv"
	"syscall"
)

func disableInterruptSignal(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}

	// give the copier its own process group so console Ctrl+C events
	// delivered to this process's group do not also reach it directly.
	cmd.SysProcAttr.CreationFlags |= syscall.CREATE_NEW_PROCESS_GROUP
}

func kill(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}

	// taskkill /T walks the process tree; copier implementations are free
	// to spawn helper processes that Process.Kill alone would not reach.
	killTree := exec.Command("taskkill", "/pid", strconv.Itoa(cmd.Process.Pid), "/f", "/t")

	if err := killTree.Run(); err != nil {
		return cmd.Process.Kill()
	}

	return nil
}
