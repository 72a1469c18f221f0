package install

import (
	"os/exec"
	"syscall"
)

// setChroot arranges for cmd to run chrooted into rootdir. Returns false if
// the platform doesn't support it, in which case the caller falls back to
// applying ownership against the host's name databases.
func setChroot(cmd *exec.Cmd, rootdir string) bool {
	cmd.SysProcAttr = &syscall.SysProcAttr{Chroot: rootdir}
	cmd.Dir = "/"
	return true
}
