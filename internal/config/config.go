// Package config implements the configuration-variable-lookup collaborator
// named in spec.md §1: a small set of macro-like path variables
// (SOURCEDIR, SPECDIR, TMPPATH) consulted by the source-package installer
// and the archive install driver.
//
// Decoding uses github.com/BurntSushi/toml, the same library the teacher
// uses (parser.go) to decode its package-definition format; here it decodes
// an installer configuration file instead of a package definition.
package config

import (
	"io"
	"os"

	"github.com/BurntSushi/toml"
)

// Variables holds the subset of RPM macros this engine consults. Unset
// fields fall back to the defaults below, matching how a fresh install of
// rpm itself behaves before any macro file is customized.
type Variables struct {
	SourceDir string `toml:"sourcedir"`
	SpecDir   string `toml:"specdir"`
	TmpPath   string `toml:"tmppath"`
}

// Defaults returns the built-in macro values used when no config file is
// present or a field is left unset.
func Defaults() Variables {
	return Variables{
		SourceDir: "/usr/src/packages/SOURCES",
		SpecDir:   "/usr/src/packages/SPECS",
		TmpPath:   "/var/tmp",
	}
}

// Load reads a TOML configuration file at path, overlaying it onto
// Defaults(). A missing file is not an error; it just yields the defaults.
func Load(path string) (Variables, error) {
	v := Defaults()
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return v, nil
		}
		return v, err
	}
	defer f.Close()
	return decode(f, v)
}

func decode(r io.Reader, base Variables) (Variables, error) {
	v := base
	_, err := toml.NewDecoder(r).Decode(&v)
	if err != nil {
		return base, err
	}
	return v, nil
}
