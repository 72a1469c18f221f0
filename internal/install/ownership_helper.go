package install

import (
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/holorpm/rpminstall/internal/sink"
)

// RunApplyOwnershipHelper is the entrypoint cmd/rpminstall's
// "__apply-ownership" subcommand calls after being re-exec'd into a chroot
// (see OwnershipApplier.applyChrooted). It decodes the manifest from r and
// repeats ownership application against "/", which inside the chroot is
// rootdir. Returns a process exit code.
func RunApplyOwnershipHelper(r io.Reader) int {
	files, err := decodeOwnershipManifest(r)
	if err != nil {
		os.Stderr.WriteString("rpminstall: decoding ownership manifest: " + err.Error() + "\n")
		return 2
	}
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	applier := &OwnershipApplier{Sink: sink.New(logger)}
	if err := applier.applyDirect("/", files); err != nil {
		os.Stderr.WriteString("rpminstall: " + err.Error() + "\n")
		return 2
	}
	return 0
}
