package install

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBackupExistingRenamesBackupAndSaveActions(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "etc", "conf"), "old config")
	writeFile(t, filepath.Join(root, "etc", "other"), "old other")

	files := []FileEntry{
		{Path: "/etc/conf", Action: ActionBackup},
		{Path: "/etc/other", Action: ActionSave},
	}
	if err := backupExisting(root, files); err != nil {
		t.Fatal(err)
	}

	assertContent(t, filepath.Join(root, "etc", "conf.rpmorig"), "old config")
	assertContent(t, filepath.Join(root, "etc", "other.rpmsave"), "old other")

	if _, err := os.Lstat(filepath.Join(root, "etc", "conf")); !os.IsNotExist(err) {
		t.Fatal("original path should have been renamed away")
	}
}

func TestBackupExistingSkipsFilesWithNoBackupAction(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "usr", "bin", "tool"), "binary")

	files := []FileEntry{{Path: "/usr/bin/tool", Action: ActionCreate}}
	if err := backupExisting(root, files); err != nil {
		t.Fatal(err)
	}
	assertContent(t, filepath.Join(root, "usr", "bin", "tool"), "binary")
}

func TestBackupExistingToleratesMissingFile(t *testing.T) {
	root := t.TempDir()
	files := []FileEntry{{Path: "/etc/absent", Action: ActionBackup}}
	if err := backupExisting(root, files); err != nil {
		t.Fatalf("a missing on-disk file must not be an error: %v", err)
	}
}

func assertContent(t *testing.T, path, want string) {
	t.Helper()
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	if string(got) != want {
		t.Fatalf("%s content = %q, want %q", path, got, want)
	}
}
