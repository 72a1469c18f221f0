// Package platform implements the arch/OS compatibility-scoring
// collaborator named in spec.md §1 and §4.1.
package platform

import "runtime"

// archIDMap maps the legacy 8-bit numeric architecture tag (as carried by
// old-style lead-era packages) to the running system's runtime.GOARCH. This
// is the read-side mirror of the teacher's write-side archIDMap in
// rpm/lead.go (which maps common.Architecture values to the same numeric
// space when building a lead).
var archIDMap = map[int8]string{
	1: "386",
	2: "alpha",
	3: "sparc",
	6: "mips",
	7: "ppc",
	8: "390",
	9: "sgi",
	10: "arm",
	11: "mipsle",
	12: "ppc64",
	14: "arm64",
	15: "amd64",
}

// osIDMap maps the legacy 8-bit numeric OS tag. Per spec.md §4.1, the
// legacy OS tag is unconditionally accepted for backward compatibility --
// this map exists only for completeness/documentation, it is never
// consulted by OSOK.
var osIDMap = map[int8]string{
	1: "linux",
}

// Scorer scores whether the running system can execute a given platform
// tag. A non-zero score means compatible; spec.md never specifies how much
// "more compatible" a higher score should be, so this implementation uses a
// simple compatible=1/incompatible=0 scale, which is all ArchOK/OSOK ever
// examine (score != 0).
type Scorer struct {
	// GOARCH/GOOS are overridable for tests; zero value means "use the
	// running runtime.GOARCH/GOOS".
	GOARCH string
	GOOS   string
}

// NewScorer returns a Scorer bound to the running system.
func NewScorer() *Scorer {
	return &Scorer{GOARCH: runtime.GOARCH, GOOS: runtime.GOOS}
}

func (s *Scorer) goarch() string {
	if s.GOARCH != "" {
		return s.GOARCH
	}
	return runtime.GOARCH
}

func (s *Scorer) goos() string {
	if s.GOOS != "" {
		return s.GOOS
	}
	return runtime.GOOS
}

// ScoreArch returns a non-zero score iff the running system can run archTag
// (new-style string form, e.g. "x86_64", "noarch", "armv7hl").
func (s *Scorer) ScoreArch(archTag string) int {
	if archTag == "noarch" {
		return 1
	}
	if canonicalArch(archTag) == s.goarch() {
		return 1
	}
	return 0
}

// ScoreOS returns a non-zero score iff the running system can run osTag
// (new-style string form, e.g. "linux").
func (s *Scorer) ScoreOS(osTag string) int {
	if osTag == s.goos() {
		return 1
	}
	return 0
}

// canonicalArch normalizes the handful of aliases a real packaging
// ecosystem accumulates (see the teacher's archMap in parser.go, which maps
// these same aliases the other direction when building packages).
func canonicalArch(tag string) string {
	switch tag {
	case "x86_64":
		return "amd64"
	case "i386", "i686":
		return "386"
	case "armv7hl", "armv7h", "armhf":
		return "arm"
	case "aarch64":
		return "arm64"
	default:
		return tag
	}
}

// ArchOK implements spec.md §4.1's arch-ok(H) -> bool: legacy headers carry
// an 8-bit numeric tag accepted iff equal to the running arch id; new
// headers carry a string scored by ScoreArch.
func ArchOK(s *Scorer, legacyArch int8, hasLegacy bool, stringArch string, hasString bool) bool {
	if hasLegacy {
		want, ok := archIDMap[legacyArch]
		return ok && want == s.goarch()
	}
	if hasString {
		return s.ScoreArch(stringArch) != 0
	}
	// Neither form present: nothing to check against, so nothing fails.
	return true
}

// OSOK implements spec.md §4.1's os-ok(H) -> bool. The legacy 8-bit tag is
// unconditionally accepted for backward compatibility; only the new string
// form is actually scored.
func OSOK(s *Scorer, hasLegacy bool, stringOS string, hasString bool) bool {
	if hasLegacy {
		return true
	}
	if hasString {
		return s.ScoreOS(stringOS) != 0
	}
	return true
}
