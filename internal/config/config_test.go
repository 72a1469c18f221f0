package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	v, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if v != Defaults() {
		t.Fatalf("got %+v, want defaults %+v", v, Defaults())
	}
}

func TestLoadOverlaysProvidedFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rpminstall.toml")
	if err := os.WriteFile(path, []byte(`tmppath = "/custom/tmp"`+"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	v, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if v.TmpPath != "/custom/tmp" {
		t.Fatalf("TmpPath = %q, want /custom/tmp", v.TmpPath)
	}
	if v.SourceDir != Defaults().SourceDir {
		t.Fatalf("unset field SourceDir should keep its default, got %q", v.SourceDir)
	}
}
