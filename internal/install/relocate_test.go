package install

import (
	"errors"
	"testing"

	"github.com/holorpm/rpminstall/internal/header"
)

func TestRelocateSamePrefixKeepsHeaderAndSetsInstallPrefix(t *testing.T) {
	h := header.New()
	h.AddStringArrayValue(header.TagFileNames, []string{"/opt/app/bin/tool", "/opt/app/etc/conf"})

	res, err := Relocate(h, "/opt/app", "/opt/app")
	if err != nil {
		t.Fatal(err)
	}
	if res.Header != h {
		t.Fatal("equal-prefix relocation must reuse the original header, not clone")
	}
	prefix, ok := res.Header.GetString(header.TagInstallPrefix)
	if !ok || prefix != "/opt/app" {
		t.Fatalf("INSTALLPREFIX = %q, %v", prefix, ok)
	}
	if res.RelocationLength != len("/opt/app")+1 {
		t.Fatalf("RelocationLength = %d, want %d", res.RelocationLength, len("/opt/app")+1)
	}
}

func TestRelocateDifferentPrefixRewritesFileNames(t *testing.T) {
	h := header.New()
	h.AddStringArrayValue(header.TagFileNames, []string{"/opt/app/bin/tool", "/opt/app/etc/conf", "/opt/app"})

	res, err := Relocate(h, "/opt/app", "/srv/app")
	if err != nil {
		t.Fatal(err)
	}
	if res.Header == h {
		t.Fatal("cross-prefix relocation must clone, not mutate the original header")
	}
	names, ok := res.Header.GetStringArray(header.TagFileNames)
	if !ok {
		t.Fatal("FILENAMES missing from relocated header")
	}
	want := []string{"/srv/app/bin/tool", "/srv/app/etc/conf", "/srv/app"}
	if len(names) != len(want) {
		t.Fatalf("got %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("names[%d] = %q, want %q", i, names[i], want[i])
		}
	}
	prefix, _ := res.Header.GetString(header.TagInstallPrefix)
	if prefix != "/srv/app" {
		t.Fatalf("INSTALLPREFIX = %q, want /srv/app", prefix)
	}

	// The original header must be untouched.
	origNames, _ := h.GetStringArray(header.TagFileNames)
	if origNames[0] != "/opt/app/bin/tool" {
		t.Fatal("original header was mutated by Relocate")
	}
}

func TestRelocateAnomalousFileNameReroots(t *testing.T) {
	h := header.New()
	h.AddStringArrayValue(header.TagFileNames, []string{"/etc/app.conf"})

	res, err := Relocate(h, "/opt/app", "/srv/app")
	if err != nil {
		t.Fatal(err)
	}
	names, _ := res.Header.GetStringArray(header.TagFileNames)
	if names[0] != "/etc/app.conf" {
		t.Fatalf("anomalous name got rewritten to %q", names[0])
	}
}

func TestRelocateNotRelocatableFailsWithKindNoRelocate(t *testing.T) {
	h := header.New()
	_, err := Relocate(h, "", "/srv/app")
	if err == nil {
		t.Fatal("expected an error for a non-relocatable package")
	}
	var installErr *Error
	if !errors.As(err, &installErr) {
		t.Fatalf("error is not *install.Error: %v", err)
	}
	if installErr.Kind != KindNoRelocate {
		t.Fatalf("Kind = %v, want %v", installErr.Kind, KindNoRelocate)
	}
}
