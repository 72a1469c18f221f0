package install

import (
	"context"
	"fmt"

	"github.com/holorpm/rpminstall/internal/header"
	"github.com/holorpm/rpminstall/internal/rpmdb"
)

// reconcileResult is the shared-file reconciler's output (spec.md §4.4):
// the replacement list, already terminated with the sentinel record spec.md
// §3/§8 requires. Rewritten actions are not carried here; Reconcile writes
// them into the caller's files slice in place.
type reconcileResult struct {
	Replacements []ReplacementRecord // terminated by {RecOffset: 0}
}

// headerCache memoizes one installed-package header per offset within a
// single reconciliation pass, so consecutive shared-file records against the
// same package only pay for one GetRecord round trip (spec.md §4.4 step 1).
type headerCache struct {
	db      Database
	ctx     context.Context
	offset  int64
	rec     *rpmdb.Record
	primed  bool
}

func (c *headerCache) get(offset int64) (*rpmdb.Record, error) {
	if c.primed && c.offset == offset {
		return c.rec, nil
	}
	rec, err := c.db.GetRecord(c.ctx, offset)
	if err != nil {
		return nil, err
	}
	c.primed = true
	c.offset = offset
	c.rec = rec
	return rec, nil
}

// Reconcile implements spec.md §4.4. files is mutated in place: entries
// whose fate changes because of a CONFIG-vs-CONFIG comparison get a new
// Action.
func Reconcile(ctx context.Context, db Database, files []FileEntry, ignoreOffsets map[int64]bool, replaceFiles bool, notErrors map[int64]bool) (*reconcileResult, error) {
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}

	shared, err := db.FindSharedFiles(ctx, paths)
	if err != nil {
		return nil, fail(KindDBCorrupt, fmt.Errorf("querying shared files: %w", err))
	}

	cache := &headerCache{db: db, ctx: ctx}
	var replacements []ReplacementRecord

	for _, rec := range shared {
		if ignoreOffsets[rec.SecRecOffset] {
			continue
		}
		secRec, err := cache.get(rec.SecRecOffset)
		if err != nil {
			return nil, fail(KindDBCorrupt, fmt.Errorf("loading shared package at offset %d: %w", rec.SecRecOffset, err))
		}

		secStates, _ := secRec.Header.GetInt32Array(header.TagFileStates)
		if rec.SecFileNumber < len(secStates) {
			switch FileState(secStates[rec.SecFileNumber]) {
			case StateReplaced, StateNotInstalled:
				continue
			}
		}

		secEntry, err := fileEntryAt(secRec.Header, rec.SecFileNumber)
		if err != nil {
			return nil, fail(KindDBCorrupt, err)
		}

		mainEntry := &files[rec.MainFileNumber]
		if !filecmp(secEntry, mainEntry) {
			if !replaceFiles && !notErrors[rec.SecRecOffset] {
				return nil, failPath(KindConflict, mainEntry.Path,
					fmt.Errorf("file is also owned by an installed package (offset %d)", rec.SecRecOffset))
			}
			replacements = append(replacements, ReplacementRecord{
				RecOffset:  rec.SecRecOffset,
				FileNumber: rec.SecFileNumber,
			})
		}

		if isConfig(secEntry) || isConfig(mainEntry) {
			broken := !secRec.Header.Has(header.TagRPMVersion)
			mainEntry.Action = decideFate(
				mainEntry.Path,
				secEntry.Type, secEntry.MD5, secEntry.LinkTo,
				mainEntry.Type, mainEntry.MD5, mainEntry.LinkTo,
				broken,
			)
		}
	}

	replacements = append(replacements, ReplacementRecord{RecOffset: 0})
	return &reconcileResult{Replacements: replacements}, nil
}

// filecmp compares two file entries sharing a path, as spec.md §4.4 step 2
// describes: different types conflict; symlinks compare targets; regular
// files compare MD5; anything else (DIR, device, pipe, socket) is
// considered equal since there's no content to diverge.
func filecmp(a, b *FileEntry) bool {
	if a.Type != b.Type {
		return false
	}
	switch a.Type {
	case TypeSymlink:
		return a.LinkTo == b.LinkTo
	case TypeRegular:
		return a.MD5 == b.MD5
	default:
		return true
	}
}

func isConfig(f *FileEntry) bool {
	return f.Type != TypeDir && f.Flags&FileFlagConfigBit != 0
}

// fileEntryAt derives a single FileEntry from an installed record's header
// at the given file index, the way db/shared-file lookups need it.
func fileEntryAt(h *header.Header, i int) (*FileEntry, error) {
	names, _ := h.GetStringArray(header.TagFileNames)
	if i < 0 || i >= len(names) {
		return nil, fmt.Errorf("file index %d out of range (have %d files)", i, len(names))
	}
	modes, _ := h.GetInt16Array(header.TagFileModes)
	md5s, _ := h.GetStringArray(header.TagFileMD5s)
	links, _ := h.GetStringArray(header.TagFileLinktos)
	flags, _ := h.GetInt32Array(header.TagFileFlags)

	e := &FileEntry{Index: i, Path: names[i]}
	if i < len(modes) {
		e.Mode = uint32(uint16(modes[i]))
		e.Type = FileTypeFromUnixMode(e.Mode)
	}
	if i < len(md5s) {
		e.MD5 = md5s[i]
	}
	if i < len(links) {
		e.LinkTo = links[i]
	}
	if i < len(flags) {
		e.Flags = flags[i]
	}
	return e, nil
}
