package install

import (
	"strings"

	"github.com/holorpm/rpminstall/internal/header"
)

// relocateResult is what Relocate hands back to the orchestrator: the
// header to install from (which may be h itself, unmodified, or a fresh
// clone) and spec.md §4.2's "relocation length": len(defaultPrefix)+1 on the
// equal-prefix path, 0 after a rewrite. It is recorded only; filesToExtract
// does not strip it from the names handed to the extractor.
type relocateResult struct {
	Header           *header.Header
	RelocationLength int
}

// Relocate implements spec.md §4.2. newPrefix == "" means "install at the
// package's own default location" -- the caller is expected to have already
// resolved Request.Location into the package's DEFAULTPREFIX in that case,
// so Relocate here always receives two concrete prefixes to compare.
func Relocate(h *header.Header, defaultPrefix, newPrefix string) (*relocateResult, error) {
	defaultPrefix = strings.TrimRight(defaultPrefix, "/")
	newPrefix = strings.TrimRight(newPrefix, "/")

	if defaultPrefix == "" {
		return nil, fail(KindNoRelocate, errNotRelocatable)
	}

	if defaultPrefix == newPrefix {
		h.AddStringValue(header.TagInstallPrefix, defaultPrefix, false)
		return &relocateResult{
			Header:           h,
			RelocationLength: len(defaultPrefix) + 1,
		}, nil
	}

	names, ok := h.GetStringArray(header.TagFileNames)
	if !ok {
		names = nil
	}

	out := h.Clone()
	out.Remove(header.TagFileNames)
	relocated := make([]string, len(names))
	for i, name := range names {
		if strings.HasPrefix(name, defaultPrefix+"/") || name == defaultPrefix {
			relocated[i] = newPrefix + strings.TrimPrefix(name, defaultPrefix)
			continue
		}
		// Anomaly: a filename that doesn't actually sit under the package's
		// declared default prefix. Keep it installable rather than failing
		// the whole package: it keeps its own absolute path (with a leading
		// "/" ensured) and is not moved under the new prefix.
		relocated[i] = "/" + strings.TrimPrefix(name, "/")
	}
	out.AddStringArrayValue(header.TagFileNames, relocated)
	out.AddStringValue(header.TagInstallPrefix, newPrefix, false)

	return &relocateResult{Header: out, RelocationLength: 0}, nil
}

var errNotRelocatable = notRelocatableError{}

type notRelocatableError struct{}

func (notRelocatableError) Error() string {
	return "package is not relocatable but a non-default install location was requested"
}
