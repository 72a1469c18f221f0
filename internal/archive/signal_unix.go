//go:build unix

package archive

import (
	"os/signal"
	"syscall"
)

// ignoreSigpipe masks SIGPIPE for the duration of an extraction and returns
// a func that restores normal delivery, per spec.md §5: "SIGPIPE is masked
// during extraction and restored after".
func ignoreSigpipe() func() {
	signal.Ignore(syscall.SIGPIPE)
	return func() { signal.Reset(syscall.SIGPIPE) }
}
