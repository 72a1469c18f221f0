package archive

import (
	"bufio"
	"io"

	"github.com/blakesmith/ar"
)

// ErrNotSourcePackage is a sentinel for spec.md's NOT-SRPM error kind.
// SniffLegacyArSource does not return it: a stream without the ar magic is
// reported as (false, nil).
var ErrNotSourcePackage = io.ErrUnexpectedEOF

const arMagic = "!<arch>\n"

// SniffLegacyArSource peeks at r for the BSD-ar magic. Very old source
// package distributions (predating RPM's native lead format on some ports,
// per SPEC_FULL.md §3.11) wrap their payload in a plain ar archive instead
// of an RPM lead; this lets the installer tell that apart from a header
// that's simply corrupt. r must be re-readable from the start after this
// call, so callers pass a *bufio.Reader and discard nothing.
func SniffLegacyArSource(r *bufio.Reader) (bool, error) {
	peek, err := r.Peek(len(arMagic))
	if err != nil {
		if err == io.EOF {
			return false, nil
		}
		return false, err
	}
	return string(peek) == arMagic, nil
}

// ReadArSource extracts the first ar entry from r -- the legacy source
// layout packs exactly one member, the actual source archive.
func ReadArSource(r io.Reader) (name string, body io.Reader, err error) {
	reader := ar.NewReader(r)
	hdr, err := reader.Next()
	if err != nil {
		return "", nil, err
	}
	return hdr.Name, reader, nil
}
