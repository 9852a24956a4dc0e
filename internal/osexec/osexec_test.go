package osexec_test

import (
	"os/exec"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robocurse/robocurse/internal/osexec"
)

func TestDisableInterruptSignal(t *testing.T) {
	c := &exec.Cmd{}

	osexec.DisableInterruptSignal(c)
	require.NotNil(t, c.SysProcAttr)
}

func TestKill_NoProcess(t *testing.T) {
	c := &exec.Cmd{}

	require.NoError(t, osexec.Kill(c))
}
