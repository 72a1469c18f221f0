package install

import (
	"crypto/md5"
	"encoding/hex"
	"io"
	"os"
)

// decideFate implements spec.md §4.3's file-fate decision table. Rules are
// evaluated in order; the first match wins.
func decideFate(path string, dbType FileType, dbMD5, dbLink string, newType FileType, newMD5, newLink string, brokenMD5 bool) Action {
	fi, err := os.Lstat(path)
	if err != nil {
		return ActionCreate // rule 1
	}
	diskType := FileTypeFromMode(uint32(fi.Mode()))

	if diskType != newType {
		return ActionSave // rule 2
	}
	if newType != dbType && diskType != dbType {
		return ActionSave // rule 3
	}
	if dbType != newType {
		return ActionCreate // rule 4
	}
	if dbType != TypeRegular && dbType != TypeSymlink {
		return ActionCreate // rule 5
	}

	switch dbType {
	case TypeRegular:
		diskMD5, err := hashFile(path, brokenMD5)
		if err != nil {
			return ActionCreate // rule 6
		}
		if diskMD5 == dbMD5 {
			return ActionCreate // rule 7: file was never modified on disk
		}
	case TypeSymlink:
		target, err := os.Readlink(path)
		if err != nil {
			return ActionCreate // rule 8
		}
		if target == dbLink {
			return ActionCreate // rule 9
		}
	}

	// Rule 10: same attribute in both package versions.
	switch dbType {
	case TypeRegular:
		if dbMD5 == newMD5 {
			return ActionKeep
		}
	case TypeSymlink:
		if dbLink == newLink {
			return ActionKeep
		}
	}

	return ActionSave // rule 11
}

// seedActions implements the pre-reconciliation seeding pass spec.md §4.3
// describes: every file starts as CREATE, except an existing on-disk CONFIG
// file (seeded BACKUP) and a DOC file under NODOCS (seeded SKIP).
func seedActions(rootdir string, files []FileEntry, noDocs bool) {
	for i := range files {
		f := &files[i]
		f.Action = ActionCreate
		isConfig := f.Flags&FileFlagConfigBit != 0 && f.Type != TypeDir
		if isConfig {
			if _, err := os.Lstat(joinRoot(rootdir, f.Path)); err == nil {
				f.Action = ActionBackup
			}
			continue
		}
		if noDocs && f.Flags&FileFlagDocBit != 0 {
			f.Action = ActionSkip
		}
	}
}

// hashFile computes the MD5 digest of the regular file at path.
// brokenMD5 selects the legacy variant used against database entries from
// headers lacking RPMVERSION (see reconcile.go): one NUL byte is hashed
// after the file content before the digest is taken. This models the legacy
// hashing routine spec.md §4.3 names; it is not a byte-for-byte port of a
// known historical algorithm (see DESIGN.md).
func hashFile(path string, brokenMD5 bool) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	if brokenMD5 {
		h.Write([]byte{0x00})
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func joinRoot(rootdir, path string) string {
	if rootdir == "" || rootdir == "/" {
		return path
	}
	return rootdir + path
}

// File flag bit aliases kept local to this package so §4.3/§4.4 read
// naturally against spec.md's prose without importing header's FileFlag*
// constants under a different name at every call site.
const (
	FileFlagConfigBit = 1 << 0
	FileFlagDocBit    = 1 << 1
)
