//go:build !linux

package install

import "os/exec"

func setChroot(cmd *exec.Cmd, rootdir string) bool { return false }
