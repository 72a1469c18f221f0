package install

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"testing"

	"github.com/holorpm/rpminstall/internal/archive"
	"github.com/holorpm/rpminstall/internal/header"
	"github.com/holorpm/rpminstall/internal/platform"
	"github.com/holorpm/rpminstall/internal/rpmdb"
	"github.com/holorpm/rpminstall/internal/sink"
	"github.com/rs/zerolog"
	"go.uber.org/mock/gomock"
)

func buildPackageStream(t *testing.T, h *header.Header, isSource bool) []byte {
	t.Helper()
	var buf bytes.Buffer

	typ := uint16(0)
	if isSource {
		typ = 1
	}
	lead := header.Lead{
		Magic:   header.Magic,
		Version: [2]byte{3, 0},
		Type:    typ,
	}
	if err := binary.Write(&buf, binary.BigEndian, lead); err != nil {
		t.Fatal(err)
	}

	hdrBytes, err := h.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	buf.Write(hdrBytes)
	return buf.Bytes()
}

func newTestOrchestrator(db Database, extractor ArchiveExtractor, scriptlet ScriptletRunner) *Orchestrator {
	return &Orchestrator{
		DB:        db,
		Extractor: extractor,
		Scriptlet: scriptlet,
		Remover:   noopRemover{},
		Platform:  &platform.Scorer{GOARCH: "amd64", GOOS: "linux"},
		Sink:      sink.New(zerolog.Nop()),
	}
}

func TestInstallBinaryTestFlagPerformsNoDatabaseMutation(t *testing.T) {
	h := header.New()
	h.AddStringValue(header.TagName, "tool", false)
	h.AddStringValue(header.TagVersion, "1.0", false)
	h.AddStringValue(header.TagRelease, "1", false)
	h.AddStringValue(header.TagArch, "x86_64", false)
	h.AddStringValue(header.TagOs, "linux", false)

	stream := buildPackageStream(t, h, false)

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	scriptletMock := NewMockScriptletRunner(ctrl) // Run must never be called: no expectations set

	db := newFakeDatabase()
	orch := newTestOrchestrator(db, &stubExtractor{}, scriptletMock)

	code, err := orch.InstallBinary(context.Background(), "/", bytes.NewReader(stream), "", FlagTest, nil, "")
	if err != nil {
		t.Fatal(err)
	}
	if code != ExitOK {
		t.Fatalf("code = %v, want ExitOK", code)
	}
	if len(db.addedHeaders) != 0 || len(db.removed) != 0 || len(db.updated) != 0 {
		t.Fatalf("TEST flag must not mutate the database: added=%d removed=%v updated=%d",
			len(db.addedHeaders), db.removed, len(db.updated))
	}
}

func TestInstallBinaryRejectsSourcePackage(t *testing.T) {
	h := header.New()
	h.AddStringValue(header.TagName, "tool", false)
	stream := buildPackageStream(t, h, true)

	db := newFakeDatabase()
	orch := newTestOrchestrator(db, &stubExtractor{}, &stubScriptletRunner{})

	_, err := orch.InstallBinary(context.Background(), "/", bytes.NewReader(stream), "", 0, nil, "")
	if err == nil {
		t.Fatal("expected an error installing a source package through InstallBinary")
	}
	var installErr *Error
	if ie, ok := err.(*Error); ok {
		installErr = ie
	}
	if installErr == nil || installErr.Kind != KindNotSRPM {
		t.Fatalf("got %v, want KindNotSRPM", err)
	}
}

func TestInstallBinaryRejectsUnsupportedArch(t *testing.T) {
	h := header.New()
	h.AddStringValue(header.TagName, "tool", false)
	h.AddStringValue(header.TagVersion, "1.0", false)
	h.AddStringValue(header.TagRelease, "1", false)
	h.AddStringValue(header.TagArch, "arm64", false)
	stream := buildPackageStream(t, h, false)

	db := newFakeDatabase()
	orch := newTestOrchestrator(db, &stubExtractor{}, &stubScriptletRunner{})

	_, err := orch.InstallBinary(context.Background(), "/", bytes.NewReader(stream), "", 0, nil, "")
	if err == nil {
		t.Fatal("expected a BAD-ARCH error")
	}
	var installErr *Error
	if ie, ok := err.(*Error); ok {
		installErr = ie
	}
	if installErr == nil || installErr.Kind != KindBadArch {
		t.Fatalf("got %v, want KindBadArch", err)
	}
}

func TestInstallBinaryRefusesReinstallWithoutReplacePkg(t *testing.T) {
	h := header.New()
	h.AddStringValue(header.TagName, "tool", false)
	h.AddStringValue(header.TagVersion, "1.0", false)
	h.AddStringValue(header.TagRelease, "1", false)
	h.AddStringValue(header.TagArch, "x86_64", false)
	h.AddStringValue(header.TagOs, "linux", false)
	stream := buildPackageStream(t, h, false)

	db := newFakeDatabase()
	db.byName["tool"] = []rpmdb.Record{{Offset: 1, Name: "tool", Version: "1.0", Release: "1"}}
	orch := newTestOrchestrator(db, &stubExtractor{}, &stubScriptletRunner{})

	_, err := orch.InstallBinary(context.Background(), "/", bytes.NewReader(stream), "", 0, nil, "")
	if err == nil {
		t.Fatal("expected ALREADY-INSTALLED")
	}
	var installErr *Error
	if ie, ok := err.(*Error); ok {
		installErr = ie
	}
	if installErr == nil || installErr.Kind != KindAlreadyInstalled {
		t.Fatalf("got %v, want KindAlreadyInstalled", err)
	}
}

func TestInstallBinaryRefusesDowngradeWithoutOldPackage(t *testing.T) {
	h := header.New()
	h.AddStringValue(header.TagName, "tool", false)
	h.AddStringValue(header.TagVersion, "1.0", false)
	h.AddStringValue(header.TagRelease, "1", false)
	h.AddStringValue(header.TagArch, "x86_64", false)
	h.AddStringValue(header.TagOs, "linux", false)
	stream := buildPackageStream(t, h, false)

	db := newFakeDatabase()
	db.byName["tool"] = []rpmdb.Record{{Offset: 1, Name: "tool", Version: "2.0", Release: "1"}}
	orch := newTestOrchestrator(db, &stubExtractor{}, &stubScriptletRunner{})

	_, err := orch.InstallBinary(context.Background(), "/", bytes.NewReader(stream), "", 0, nil, "")
	if err == nil {
		t.Fatal("expected OLDPACKAGE")
	}
	var installErr *Error
	if ie, ok := err.(*Error); ok {
		installErr = ie
	}
	if installErr == nil || installErr.Kind != KindOldPackage {
		t.Fatalf("got %v, want KindOldPackage", err)
	}
}

type stubExtractor struct{}

func (stubExtractor) Install(ctx context.Context, compressed io.Reader, opts archive.Options) (*archive.Result, error) {
	return &archive.Result{}, nil
}

type stubScriptletRunner struct{}

func (stubScriptletRunner) Run(ctx context.Context, rootdir, label, script string, scriptArg int) error {
	return nil
}
