package install

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMaterializeDirsCreatesNestedParents(t *testing.T) {
	root := t.TempDir()
	files := []FileEntry{
		{Path: "/usr/share/doc/tool/README"},
		{Path: "/usr/bin/tool"},
	}
	if err := MaterializeDirs(root, files); err != nil {
		t.Fatal(err)
	}

	for _, dir := range []string{"usr/share/doc/tool", "usr/bin"} {
		fi, err := os.Stat(filepath.Join(root, dir))
		if err != nil {
			t.Fatalf("expected %s to exist: %v", dir, err)
		}
		if !fi.IsDir() {
			t.Fatalf("%s is not a directory", dir)
		}
		if fi.Mode().Perm() != 0755 {
			t.Fatalf("%s mode = %v, want 0755", dir, fi.Mode().Perm())
		}
	}
}

func TestMaterializeDirsTolerateExistingDir(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "usr", "bin"), 0700); err != nil {
		t.Fatal(err)
	}
	files := []FileEntry{{Path: "/usr/bin/tool"}}
	if err := MaterializeDirs(root, files); err != nil {
		t.Fatalf("pre-existing directory must not be an error: %v", err)
	}
}

func TestMaterializeDirsSkipsRepeatedParent(t *testing.T) {
	root := t.TempDir()
	files := []FileEntry{
		{Path: "/usr/bin/a"},
		{Path: "/usr/bin/b"},
		{Path: "/usr/bin/c"},
	}
	if err := MaterializeDirs(root, files); err != nil {
		t.Fatal(err)
	}
	fi, err := os.Stat(filepath.Join(root, "usr", "bin"))
	if err != nil || !fi.IsDir() {
		t.Fatalf("expected usr/bin to exist as a directory: %v", err)
	}
}
