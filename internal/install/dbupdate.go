package install

import (
	"context"
	"fmt"

	"github.com/holorpm/rpminstall/internal/header"
	"github.com/holorpm/rpminstall/internal/sink"
)

// MarkReplaced implements spec.md §4.8 step 1: walk the replacement list
// (sentinel-terminated), and for each distinct RecOffset, load that
// package's header, mark the named file numbers REPLACED, and write the
// header back. Best-effort: individual failures are collected, not
// propagated -- a conflicting package's bookkeeping going stale doesn't
// abort an otherwise-successful install.
func MarkReplaced(ctx context.Context, db Database, replacements []ReplacementRecord, collector *sink.Collector) {
	var (
		currentOffset int64 = -1
		currentHeader *header.Header
		currentStates []int32
		dirty         bool
	)

	flush := func() {
		if currentHeader == nil || !dirty {
			return
		}
		currentHeader.Remove(header.TagFileStates)
		currentHeader.AddInt32Value(header.TagFileStates, currentStates)
		if err := db.UpdateRecord(ctx, currentOffset, currentHeader); err != nil {
			collector.Add(fmt.Errorf("marking replaced files in package at offset %d: %w", currentOffset, err))
		}
	}

	for _, r := range replacements {
		if r.RecOffset == 0 {
			break // sentinel
		}
		if r.RecOffset != currentOffset {
			flush()
			rec, err := db.GetRecord(ctx, r.RecOffset)
			if err != nil {
				collector.Add(fmt.Errorf("loading package at offset %d to mark replaced files: %w", r.RecOffset, err))
				currentOffset = -1
				currentHeader = nil
				dirty = false
				continue
			}
			currentOffset = r.RecOffset
			currentHeader = rec.Header
			currentStates, _ = currentHeader.GetInt32Array(header.TagFileStates)
			dirty = false
		}
		if currentHeader == nil {
			continue
		}
		if r.FileNumber >= 0 && r.FileNumber < len(currentStates) {
			currentStates[r.FileNumber] = int32(StateReplaced)
			dirty = true
		}
	}
	flush()
}

// AddHeader implements spec.md §4.8 step 3: annotate h with FILESTATES and
// INSTALLTIME, then insert it. Fatal on failure.
func AddHeader(ctx context.Context, db Database, h *header.Header, states []FileState, installTime int64) (int64, error) {
	if len(states) > 0 {
		raw := make([]int32, len(states))
		for i, s := range states {
			raw[i] = int32(s)
		}
		h.Remove(header.TagFileStates)
		h.AddInt32Value(header.TagFileStates, raw)
	}
	h.Remove(header.TagInstallTime)
	h.AddInt32Value(header.TagInstallTime, []int32{int32(installTime)})

	offset, err := db.Add(ctx, h)
	if err != nil {
		return 0, fail(KindDBCorrupt, fmt.Errorf("adding package record: %w", err))
	}
	return offset, nil
}

// RemoveOldVersions implements spec.md §4.8 step 4: invoke the
// remove-package collaborator on each offset collected during
// ALREADY-INSTALLED-CHECK as an older version of the same package being
// upgraded. Removal's own behavior is out of scope (spec.md §1 non-goals);
// this only sequences the call.
func RemoveOldVersions(ctx context.Context, remover PackageRemover, db Database, rootdir string, offsets []int64, collector *sink.Collector) {
	for _, offset := range offsets {
		if err := remover.RemovePackage(ctx, rootdir, db, offset, 0); err != nil {
			collector.Add(fmt.Errorf("removing superseded package at offset %d: %w", offset, err))
		}
	}
}
