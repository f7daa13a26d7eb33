package liveness

import (
	"os"
	"os/exec"
	"testing"
)

func TestIsAlive_SelfProcess(t *testing.T) {
	if !IsAlive(os.Getpid()) {
		t.Fatal("expected current process to be alive")
	}
}

func TestIsAlive_InvalidPID(t *testing.T) {
	if IsAlive(0) {
		t.Fatal("pid 0 should not be considered alive")
	}
	if IsAlive(-1) {
		t.Fatal("negative pid should not be considered alive")
	}
}

func TestIsAlive_DeadProcess(t *testing.T) {
	cmd := exec.Command("true")
	if err := cmd.Run(); err != nil {
		t.Skipf("could not run helper process: %v", err)
	}
	if IsAlive(cmd.Process.Pid) {
		t.Fatal("expected exited process to be reported dead")
	}
}
