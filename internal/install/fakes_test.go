package install

import (
	"context"

	"github.com/holorpm/rpminstall/internal/header"
	"github.com/holorpm/rpminstall/internal/rpmdb"
)

// fakeDatabase is a hand-written stand-in for Database. Tests fill in only
// the records, name matches and shared-file rows the scenario needs;
// anything left unset reads as empty, and GetRecord on an absent offset
// returns errRecordNotFound.
type fakeDatabase struct {
	records map[int64]*rpmdb.Record
	byName  map[string][]rpmdb.Record
	shared  []rpmdb.SharedFile

	addedHeaders  []*header.Header
	removed       []int64
	updated       map[int64]*header.Header
	nextOffset    int64
}

func newFakeDatabase() *fakeDatabase {
	return &fakeDatabase{
		records: make(map[int64]*rpmdb.Record),
		byName:  make(map[string][]rpmdb.Record),
		updated: make(map[int64]*header.Header),
	}
}

func (f *fakeDatabase) FindByName(ctx context.Context, name string) ([]rpmdb.Record, error) {
	return f.byName[name], nil
}

func (f *fakeDatabase) GetRecord(ctx context.Context, offset int64) (*rpmdb.Record, error) {
	rec, ok := f.records[offset]
	if !ok {
		return nil, errRecordNotFound
	}
	return rec, nil
}

func (f *fakeDatabase) Add(ctx context.Context, h *header.Header) (int64, error) {
	f.addedHeaders = append(f.addedHeaders, h)
	f.nextOffset++
	return f.nextOffset, nil
}

func (f *fakeDatabase) Remove(ctx context.Context, offset int64) error {
	f.removed = append(f.removed, offset)
	delete(f.records, offset)
	return nil
}

func (f *fakeDatabase) UpdateRecord(ctx context.Context, offset int64, h *header.Header) error {
	f.updated[offset] = h
	if rec, ok := f.records[offset]; ok {
		rec.Header = h
	}
	return nil
}

func (f *fakeDatabase) FindSharedFiles(ctx context.Context, paths []string) ([]rpmdb.SharedFile, error) {
	return f.shared, nil
}

type notFoundError struct{}

func (notFoundError) Error() string { return "fakeDatabase: record not found" }

var errRecordNotFound = notFoundError{}
