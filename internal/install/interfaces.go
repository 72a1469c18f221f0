package install

import (
	"context"
	"io"

	"github.com/holorpm/rpminstall/internal/archive"
	"github.com/holorpm/rpminstall/internal/header"
	"github.com/holorpm/rpminstall/internal/rpmdb"
)

// Database is the package-database collaborator's interface (spec.md §1).
// The orchestrator depends on this rather than *rpmdb.DB directly so tests
// can substitute a go.uber.org/mock-generated fake.
type Database interface {
	FindByName(ctx context.Context, name string) ([]rpmdb.Record, error)
	GetRecord(ctx context.Context, offset int64) (*rpmdb.Record, error)
	Add(ctx context.Context, h *header.Header) (int64, error)
	Remove(ctx context.Context, offset int64) error
	UpdateRecord(ctx context.Context, offset int64, h *header.Header) error
	FindSharedFiles(ctx context.Context, paths []string) ([]rpmdb.SharedFile, error)
}

// ArchiveExtractor is the archive-extractor collaborator's interface
// (spec.md §1, §4.6).
type ArchiveExtractor interface {
	Install(ctx context.Context, compressed io.Reader, opts archive.Options) (*archive.Result, error)
}

// ScriptletRunner is the scriptlet-runner collaborator's interface (spec.md
// §1).
type ScriptletRunner interface {
	Run(ctx context.Context, rootdir, label, script string, scriptArg int) error
}

// PackageRemover is the "remove-package" entrypoint spec.md §1 names as the
// only removal behavior in scope: invoked on old versions during upgrade
// cleanup (spec.md §4.8 step 4). Removal itself is out of scope (non-goal).
type PackageRemover interface {
	RemovePackage(ctx context.Context, rootdir string, db Database, offset int64, flags int) error
}
