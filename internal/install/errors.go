package install

import "fmt"

// Kind is one of the error kinds enumerated in spec.md §7.
type Kind string

const (
	KindBadMagic         Kind = "BAD-MAGIC"
	KindNotSRPM          Kind = "NOT-SRPM"
	KindBadArch          Kind = "BAD-ARCH"
	KindBadOS            Kind = "BAD-OS"
	KindNoRelocate       Kind = "NO-RELOCATE"
	KindAlreadyInstalled Kind = "ALREADY-INSTALLED"
	KindOldPackage       Kind = "OLDPACKAGE"
	KindDBCorrupt        Kind = "DB-CORRUPT"
	KindConflict         Kind = "CONFLICT"
	KindMkdir            Kind = "MKDIR"
	KindRename           Kind = "RENAME"
	KindChown            Kind = "CHOWN"
	KindCpio             Kind = "CPIO"
	KindNoSpace          Kind = "NO-SPACE"
	KindNoSpec           Kind = "NO-SPEC"
	KindInternal         Kind = "INTERNAL"
)

// Error is a fatal install-pipeline failure, tagged with the kind a caller
// would want to switch on rather than string-matching spec.md §7's error
// taxonomy.
type Error struct {
	Kind Kind
	Path string // optional: the file path involved, when applicable
	Err  error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func fail(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

func failPath(kind Kind, path string, err error) *Error {
	return &Error{Kind: kind, Path: path, Err: err}
}
