package install

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// MaterializeDirs implements spec.md §4.5: ensure every parent directory of
// every file in files exists, under rootdir. Files are walked in the order
// given; the last directory created is cached and skipped when the next
// file's parent repeats it, which is the common case for a sorted or
// archive-order file list.
func MaterializeDirs(rootdir string, files []FileEntry) error {
	var lastDir string
	for _, f := range files {
		dir := filepath.Dir(joinRoot(rootdir, f.Path))
		if dir == lastDir {
			continue
		}
		if err := mkdirAllMode0755(dir); err != nil {
			return failPath(KindMkdir, dir, err)
		}
		lastDir = dir
	}
	return nil
}

// mkdirAllMode0755 creates dir and all missing parents at mode 0755,
// ignoring the process umask (spec.md §4.5: "created with mode 0755
// regardless of umask"). os.MkdirAll itself applies the umask, so each
// missing segment is chmod'd explicitly afterward.
func mkdirAllMode0755(dir string) error {
	if dir == "" || dir == "." || dir == "/" {
		return nil
	}
	if fi, err := os.Stat(dir); err == nil {
		if !fi.IsDir() {
			return fmt.Errorf("%s exists and is not a directory", dir)
		}
		return nil
	}

	parent := filepath.Dir(dir)
	if parent != dir {
		if err := mkdirAllMode0755(parent); err != nil {
			return err
		}
	}

	if err := os.Mkdir(dir, 0755); err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil
		}
		return err
	}
	return os.Chmod(dir, 0755)
}
