// Package rpmversion implements the version-comparator collaborator named
// in spec.md §1, wrapping github.com/knqyf263/go-rpm-version -- the same
// library quay-claircore's distro matchers (aws/matcher.go, rhel/matcher.go,
// alma/matcher.go, ...) use to compare installed-vs-vulnerable package
// versions.
package rpmversion

import (
	version "github.com/knqyf263/go-rpm-version"
)

// Compare compares two (version, release) pairs the way spec.md §6
// describes: "compare versions; equal versions compare releases". It
// returns <0, 0, or >0 the way strings.Compare/bytes.Compare do.
func Compare(aVersion, aRelease, bVersion, bRelease string) int {
	a := version.NewVersion(aVersion + "-" + aRelease)
	b := version.NewVersion(bVersion + "-" + bRelease)
	return a.Compare(b)
}

// IsOlderOrEqual reports whether (version, release) a is not newer than b --
// the gate spec.md §6's ensure-older applies before an upgrade without
// UPGRADETOOLD.
func IsOlderOrEqual(aVersion, aRelease, bVersion, bRelease string) bool {
	return Compare(aVersion, aRelease, bVersion, bRelease) <= 0
}
