package install

import (
	"testing"

	"github.com/holorpm/rpminstall/internal/header"
)

// TestBuildFileTableToleratesShortArrays pins spec.md §8's size-parallelism
// property: FILEMODES (and every other parallel array) may carry fewer
// entries than FILENAMES, and buildFileTable must leave the missing tail
// zero-valued rather than panicking or silently truncating the file list.
func TestBuildFileTableToleratesShortArrays(t *testing.T) {
	h := header.New()
	h.AddStringArrayValue(header.TagFileNames, []string{"/usr/bin/a", "/usr/bin/b", "/usr/bin/c"})
	h.AddInt16Value(header.TagFileModes, []int16{0755})
	h.AddInt32Value(header.TagFileSizes, []int32{10, 20})

	files, err := buildFileTable(h)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 3 {
		t.Fatalf("got %d files, want 3 (one per FILENAMES entry)", len(files))
	}
	if files[0].Mode != 0755 || files[0].Size != 10 {
		t.Fatalf("files[0] = %+v, want Mode=0755 Size=10", files[0])
	}
	if files[1].Mode != 0 || files[1].Size != 20 {
		t.Fatalf("files[1] = %+v, want Mode=0 (past FILEMODES end) Size=20", files[1])
	}
	if files[2].Mode != 0 || files[2].Size != 0 {
		t.Fatalf("files[2] = %+v, want zero-valued (past both arrays' end)", files[2])
	}
}

func TestBuildFileTableOneEntryPerFile(t *testing.T) {
	h := header.New()
	h.AddStringArrayValue(header.TagFileNames, []string{"/etc/conf", "/usr/bin/tool"})
	h.AddInt16Value(header.TagFileModes, []int16{0644, 0755})
	h.AddInt32Value(header.TagFileSizes, []int32{100, 200})
	h.AddStringArrayValue(header.TagFileMD5s, []string{"aaa", "bbb"})
	h.AddStringArrayValue(header.TagFileUserName, []string{"root", "root"})
	h.AddStringArrayValue(header.TagFileGroupName, []string{"root", "root"})

	files, err := buildFileTable(h)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Fatalf("got %d files, want 2", len(files))
	}
	if files[0].Path != "/etc/conf" || files[0].Type != TypeRegular {
		t.Fatalf("files[0] = %+v", files[0])
	}
	if files[1].Path != "/usr/bin/tool" || files[1].MD5 != "bbb" {
		t.Fatalf("files[1] = %+v", files[1])
	}
}

func TestMarkExtractedStatesMapsActionToState(t *testing.T) {
	files := []FileEntry{
		{Path: "/a", Action: ActionCreate},
		{Path: "/b", Action: ActionBackup},
		{Path: "/c", Action: ActionSave},
		{Path: "/d", Action: ActionKeep},
		{Path: "/e", Action: ActionSkip},
	}
	markExtractedStates(files)

	for _, f := range files[:4] {
		if f.State != StateNormal {
			t.Fatalf("%s: State = %v, want StateNormal for every non-SKIP action", f.Path, f.State)
		}
	}
	if files[4].State != StateNotInstalled {
		t.Fatalf("%s: State = %v, want StateNotInstalled for ActionSkip", files[4].Path, files[4].State)
	}
}
