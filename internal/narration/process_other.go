//go:build !unix

package narration

import (
	"os"
	"os/exec"
)

var errProcessDone = os.ErrProcessDone

func prepareProcessGroup(*exec.Cmd) {}

func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return errProcessDone
	}
	return cmd.Process.Kill()
}
