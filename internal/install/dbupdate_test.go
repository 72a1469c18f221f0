package install

import (
	"context"
	"errors"
	"testing"

	"github.com/holorpm/rpminstall/internal/header"
	"github.com/holorpm/rpminstall/internal/rpmdb"
	"github.com/holorpm/rpminstall/internal/sink"
)

func TestMarkReplacedUpdatesFileStates(t *testing.T) {
	h := header.New()
	h.AddStringArrayValue(header.TagFileNames, []string{"/usr/lib/a.so", "/usr/lib/b.so"})
	h.AddInt32Value(header.TagFileStates, []int32{int32(StateNormal), int32(StateNormal)})

	db := newFakeDatabase()
	db.records[1] = &rpmdb.Record{Offset: 1, Header: h}

	var collector sink.Collector
	MarkReplaced(context.Background(), db, []ReplacementRecord{
		{RecOffset: 1, FileNumber: 1},
		{RecOffset: 0}, // sentinel
	}, &collector)

	if !collector.OK() {
		t.Fatalf("unexpected collected errors: %v", collector.Errors)
	}
	updated, ok := db.updated[1]
	if !ok {
		t.Fatal("expected UpdateRecord to be called for offset 1")
	}
	states, _ := updated.GetInt32Array(header.TagFileStates)
	if states[0] != int32(StateNormal) || states[1] != int32(StateReplaced) {
		t.Fatalf("got states %v, want [Normal, Replaced]", states)
	}
}

func TestMarkReplacedStopsAtSentinel(t *testing.T) {
	h := header.New()
	h.AddInt32Value(header.TagFileStates, []int32{int32(StateNormal)})
	db := newFakeDatabase()
	db.records[1] = &rpmdb.Record{Offset: 1, Header: h}

	var collector sink.Collector
	MarkReplaced(context.Background(), db, []ReplacementRecord{
		{RecOffset: 0},
		{RecOffset: 1, FileNumber: 0},
	}, &collector)

	if len(db.updated) != 0 {
		t.Fatalf("records after the sentinel must be ignored, got %v", db.updated)
	}
}

func TestMarkReplacedCollectsLoadFailureWithoutAborting(t *testing.T) {
	db := newFakeDatabase() // offset 99 absent -> GetRecord fails
	var collector sink.Collector
	MarkReplaced(context.Background(), db, []ReplacementRecord{
		{RecOffset: 99, FileNumber: 0},
		{RecOffset: 0},
	}, &collector)

	if collector.OK() {
		t.Fatal("expected a collected error for a missing package offset")
	}
}

func TestAddHeaderSkipsFileStatesWhenEmpty(t *testing.T) {
	h := header.New()
	h.AddStringValue(header.TagName, "tool", false)

	db := newFakeDatabase()
	offset, err := AddHeader(context.Background(), db, h, nil, 12345)
	if err != nil {
		t.Fatal(err)
	}
	if offset == 0 {
		t.Fatal("expected a non-zero assigned offset")
	}
	added := db.addedHeaders[0]
	if added.Has(header.TagFileStates) {
		t.Fatal("FILESTATES must not be written for an empty states list")
	}
	installTime, ok := added.GetInt32Array(header.TagInstallTime)
	if !ok || installTime[0] != 12345 {
		t.Fatalf("INSTALLTIME = %v, %v", installTime, ok)
	}
}

func TestAddHeaderWritesFileStatesWhenPresent(t *testing.T) {
	h := header.New()
	db := newFakeDatabase()
	_, err := AddHeader(context.Background(), db, h, []FileState{StateNormal, StateNotInstalled}, 1)
	if err != nil {
		t.Fatal(err)
	}
	added := db.addedHeaders[0]
	states, ok := added.GetInt32Array(header.TagFileStates)
	if !ok || len(states) != 2 || states[1] != int32(StateNotInstalled) {
		t.Fatalf("FILESTATES = %v, %v", states, ok)
	}
}

type stubRemover struct {
	calls []int64
	err   error
}

func (s *stubRemover) RemovePackage(ctx context.Context, rootdir string, db Database, offset int64, flags int) error {
	s.calls = append(s.calls, offset)
	return s.err
}

func TestRemoveOldVersionsCallsRemoverForEveryOffset(t *testing.T) {
	db := newFakeDatabase()
	remover := &stubRemover{}
	var collector sink.Collector

	RemoveOldVersions(context.Background(), remover, db, "/", []int64{1, 2, 3}, &collector)

	if len(remover.calls) != 3 {
		t.Fatalf("got %d calls, want 3", len(remover.calls))
	}
	if !collector.OK() {
		t.Fatalf("unexpected errors: %v", collector.Errors)
	}
}

func TestRemoveOldVersionsCollectsRemoverErrors(t *testing.T) {
	db := newFakeDatabase()
	remover := &stubRemover{err: errors.New("boom")}
	var collector sink.Collector

	RemoveOldVersions(context.Background(), remover, db, "/", []int64{1}, &collector)

	if collector.OK() {
		t.Fatal("expected the remover's error to be collected")
	}
}
