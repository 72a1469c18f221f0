package install

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/holorpm/rpminstall/internal/archive"
	"github.com/holorpm/rpminstall/internal/config"
)

// InstallSourceOptions bundles the source-package flow's inputs, separate
// from Request since a source install never touches the database and
// doesn't carry most binary-install flags.
type InstallSourceOptions struct {
	RootDir string
	Test    bool
	Config  config.Variables
	Notify  func(sizeInstalled, totalSize int64)
}

// InstallSourceFlow implements spec.md §4.9. On success it returns the
// final on-disk path of the moved .spec file.
func InstallSourceFlow(ctx context.Context, extractor ArchiveExtractor, compressed io.Reader, opts InstallSourceOptions) (string, error) {
	if opts.Test {
		return "", nil
	}

	sourceDir := filepath.Join(opts.RootDir, opts.Config.SourceDir)
	specDir := filepath.Join(opts.RootDir, opts.Config.SpecDir)
	if err := os.MkdirAll(sourceDir, 0755); err != nil {
		return "", failPath(KindMkdir, sourceDir, err)
	}
	if err := os.MkdirAll(specDir, 0755); err != nil {
		return "", failPath(KindMkdir, specDir, err)
	}

	result, err := extractor.Install(ctx, compressed, archive.Options{
		Prefix:     sourceDir,
		ExtractAll: true,
		TempDir:    opts.Config.TmpPath,
		Notify:     opts.Notify,
	})
	if err != nil {
		return "", fail(KindCpio, err)
	}
	if result.SpecFile == "" {
		return "", fail(KindNoSpec, fmt.Errorf("source package contained no .spec file"))
	}

	from := filepath.Join(sourceDir, result.SpecFile)
	to := filepath.Join(specDir, filepath.Base(result.SpecFile))
	if err := moveFile(from, to); err != nil {
		return "", failPath(KindRename, from, err)
	}
	return to, nil
}

// moveFile renames from to to, falling back to copy-then-unlink when rename
// fails (e.g. sourceDir and specDir live on different filesystems).
func moveFile(from, to string) error {
	if err := os.Rename(from, to); err == nil {
		return nil
	}

	src, err := os.Open(from)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(to, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	if err := dst.Close(); err != nil {
		return err
	}
	return os.Remove(from)
}
