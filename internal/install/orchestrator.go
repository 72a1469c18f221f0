package install

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/holorpm/rpminstall/internal/archive"
	"github.com/holorpm/rpminstall/internal/config"
	"github.com/holorpm/rpminstall/internal/header"
	"github.com/holorpm/rpminstall/internal/platform"
	"github.com/holorpm/rpminstall/internal/rpmdb"
	"github.com/holorpm/rpminstall/internal/rpmversion"
	"github.com/holorpm/rpminstall/internal/scriptlet"
	"github.com/holorpm/rpminstall/internal/sink"
)

// Orchestrator sequences the install pipeline's states end to end (spec.md
// §4.10). It owns no long-lived state of its own beyond its collaborators;
// everything scoped to a single install (the parsed header, the derived
// file tables, the replacement list) lives in a per-call installState and
// is released on every exit path along with it.
type Orchestrator struct {
	DB        Database
	Extractor ArchiveExtractor
	Scriptlet ScriptletRunner
	Remover   PackageRemover
	Platform  *platform.Scorer
	Config    config.Variables
	Sink      *sink.Sink
}

// New builds an Orchestrator wired to concrete collaborators.
func New(db *rpmdb.DB, sk *sink.Sink) *Orchestrator {
	return &Orchestrator{
		DB:        db,
		Extractor: &archive.Driver{Logger: sk.Logger},
		Scriptlet: &scriptlet.Runner{Logger: sk.Logger},
		Remover:   noopRemover{},
		Platform:  platform.NewScorer(),
		Config:    config.Defaults(),
		Sink:      sk,
	}
}

// installState is everything one InstallBinary call owns.
type installState struct {
	header           *header.Header
	files            []FileEntry
	relocationLength int
	installPrefix    string
}

// InstallBinary implements spec.md §6's install-binary entrypoint, driving
// the full state sequence of §4.10's binary branch.
func (o *Orchestrator) InstallBinary(ctx context.Context, rootdir string, stream io.Reader, location string, flags Flags, notify func(sizeInstalled, totalSize int64), labelFormat string) (ExitCode, error) {
	br := bufio.NewReader(stream)

	// READ-HEADER
	lead, h, err := readPackage(br)
	if err == header.ErrBadMagic {
		return ExitBadMagic, fail(KindBadMagic, err)
	}
	if err != nil {
		return ExitError, fail(KindInternal, err)
	}

	// SOURCE-BRANCH: a binary-install caller handed a source package.
	if lead.IsSource() {
		return ExitError, fail(KindNotSRPM, fmt.Errorf("package is a source package, not a binary package"))
	}

	st := &installState{header: h}

	// RELOCATE
	defaultPrefix, _ := h.GetString(header.TagDefaultPrefix)
	newPrefix := location
	if newPrefix == "" {
		newPrefix = defaultPrefix
	}
	if newPrefix != "" {
		reloc, err := Relocate(h, defaultPrefix, newPrefix)
		if err != nil {
			return ExitError, err
		}
		st.header = reloc.Header
		st.relocationLength = reloc.RelocationLength
		st.installPrefix = newPrefix
	}
	h = st.header

	// LOOKUP-NAME-MATCHES
	name, _ := h.GetString(header.TagName)
	matches, err := o.DB.FindByName(ctx, name)
	if err != nil {
		return ExitError, fail(KindDBCorrupt, fmt.Errorf("looking up %s: %w", name, err))
	}

	// PLATFORM-CHECK
	if !flags.has(FlagNoArch) {
		legacyArch, hasLegacy := h.GetInt8(header.TagArchLegacy)
		stringArch, hasString := h.GetString(header.TagArch)
		if !platform.ArchOK(o.Platform, legacyArch, hasLegacy, stringArch, hasString) {
			return ExitError, fail(KindBadArch, fmt.Errorf("package architecture is not supported on this system"))
		}
	}
	if !flags.has(FlagNoOS) {
		_, hasLegacy := h.GetInt8(header.TagOsLegacy)
		stringOS, hasString := h.GetString(header.TagOs)
		if !platform.OSOK(o.Platform, hasLegacy, stringOS, hasString) {
			return ExitError, fail(KindBadOS, fmt.Errorf("package operating system is not supported on this system"))
		}
	}

	// ALREADY-INSTALLED-CHECK
	version, _ := h.GetString(header.TagVersion)
	release, _ := h.GetString(header.TagRelease)
	var sameVersionOffset int64 = -1
	var upgradeOffsets []int64
	for _, m := range matches {
		cmp := rpmversion.Compare(m.Version, m.Release, version, release)
		switch {
		case cmp == 0:
			sameVersionOffset = m.Offset
			if !flags.has(FlagReplacePkg) {
				return ExitError, fail(KindAlreadyInstalled, fmt.Errorf("%s-%s-%s is already installed", name, version, release))
			}
		case cmp > 0:
			// An installed copy is newer than what we're installing.
			if !flags.has(FlagUpgradeToOld) {
				return ExitError, fail(KindOldPackage, fmt.Errorf("a newer version of %s is already installed", name))
			}
			upgradeOffsets = append(upgradeOffsets, m.Offset)
		default:
			if flags.has(FlagUpgrade) {
				upgradeOffsets = append(upgradeOffsets, m.Offset)
			}
		}
	}
	// scriptArg: open question #1 in SPEC_FULL.md -- counts every
	// already-installed record with the same name, including one about to
	// be replaced by --replacepkg, computed once here and never adjusted.
	scriptArg := len(matches) + 1

	// TEST-EXIT
	if flags.has(FlagTest) {
		return ExitOK, nil
	}

	// BUILD-ACTION-TABLE
	st.files, err = buildFileTable(h)
	if err != nil {
		return ExitError, fail(KindInternal, err)
	}
	seedActions(rootdir, st.files, flags.has(FlagNoDocs))

	// RECONCILE-SHARED
	ignoreOffsets := make(map[int64]bool, len(upgradeOffsets))
	for _, offset := range upgradeOffsets {
		ignoreOffsets[offset] = true
	}
	reconcileResult, err := Reconcile(ctx, o.DB, st.files, ignoreOffsets, flags.has(FlagReplaceFiles), nil)
	if err != nil {
		return ExitError, err
	}

	// PRE-SCRIPT
	preScript, _ := h.GetString(header.TagPreIn)
	preProg, _ := h.GetString(header.TagPreInProg)
	if err := o.runScriptlet(ctx, rootdir, "%pre", preProg, preScript, scriptArg, flags); err != nil {
		return ExitError, fail(KindInternal, err)
	}

	// MAKE-DIRS
	if err := MaterializeDirs(rootdir, st.files); err != nil {
		return ExitError, err
	}

	// BACKUP-EXISTING
	if err := backupExisting(rootdir, st.files); err != nil {
		return ExitError, err
	}

	// EXTRACT
	toExtract := filesToExtract(st.files, st.relocationLength)
	archiveSizes, _ := h.GetInt32Array(header.TagArchiveSize)
	var knownSize int64
	if len(archiveSizes) > 0 {
		knownSize = int64(archiveSizes[0])
	}
	if _, err := o.Extractor.Install(ctx, br, archive.Options{
		Prefix:                rootdir,
		Files:                 toExtract,
		TempDir:               o.Config.TmpPath,
		Notify:                notify,
		KnownUncompressedSize: knownSize,
	}); err != nil {
		return ExitError, fail(KindCpio, err)
	}
	markExtractedStates(st.files)

	// APPLY-OWNERSHIP
	applier := &OwnershipApplier{Sink: o.Sink}
	if err := applier.Apply(rootdir, st.files); err != nil {
		return ExitError, err
	}

	// MARK-REPLACED
	var collector sink.Collector
	MarkReplaced(ctx, o.DB, reconcileResult.Replacements, &collector)
	for _, err := range collector.Errors {
		o.Sink.Warn(err, "marking replaced files")
	}

	// REMOVE-OLD-SAME
	if sameVersionOffset >= 0 {
		if err := o.DB.Remove(ctx, sameVersionOffset); err != nil {
			o.Sink.Warn(err, "removing previous same-version record")
		}
	}

	// ADD-HEADER
	states := make([]FileState, len(st.files))
	for i, f := range st.files {
		states[i] = f.State
	}
	if _, err := AddHeader(ctx, o.DB, h, states, time.Now().Unix()); err != nil {
		return ExitError, err
	}

	// POST-SCRIPT
	postScript, _ := h.GetString(header.TagPostIn)
	postProg, _ := h.GetString(header.TagPostInProg)
	if err := o.runScriptlet(ctx, rootdir, "%post", postProg, postScript, scriptArg, flags); err != nil {
		o.Sink.Warn(err, "post-install scriptlet failed")
	}

	// REMOVE-OLD-VERSIONS
	var removeCollector sink.Collector
	RemoveOldVersions(ctx, o.Remover, o.DB, rootdir, upgradeOffsets, &removeCollector)
	for _, err := range removeCollector.Errors {
		o.Sink.Warn(err, "removing superseded package version")
	}

	return ExitOK, nil
}

// InstallSource implements spec.md §6's install-source entrypoint. Before
// trying the current lead format, it sniffs for the legacy ar-wrapped
// source layout (SPEC_FULL.md §3.11): some very old source distributions
// pack their payload as a plain BSD-ar archive with a single member instead
// of a proper lead, and that's worth recognizing rather than failing with
// BAD-MAGIC.
func (o *Orchestrator) InstallSource(ctx context.Context, rootdir string, stream io.Reader, notify func(sizeInstalled, totalSize int64), test bool) (ExitCode, string, error) {
	br := bufio.NewReader(stream)

	if isAr, err := archive.SniffLegacyArSource(br); err == nil && isAr {
		_, body, err := archive.ReadArSource(br)
		if err != nil {
			return ExitError, "", fail(KindNotSRPM, fmt.Errorf("reading legacy ar-wrapped source member: %w", err))
		}
		path, err := InstallSourceFlow(ctx, o.Extractor, body, InstallSourceOptions{
			RootDir: rootdir,
			Test:    test,
			Config:  o.Config,
			Notify:  notify,
		})
		if err != nil {
			return ExitError, "", err
		}
		return ExitOK, path, nil
	}

	lead, _, err := readPackage(br)
	if err == header.ErrBadMagic {
		return ExitBadMagic, "", fail(KindBadMagic, err)
	}
	if err != nil {
		return ExitError, "", fail(KindInternal, err)
	}
	if !lead.IsSource() {
		return ExitError, "", fail(KindNotSRPM, fmt.Errorf("package is a binary package, not a source package"))
	}

	path, err := InstallSourceFlow(ctx, o.Extractor, br, InstallSourceOptions{
		RootDir: rootdir,
		Test:    test,
		Config:  o.Config,
		Notify:  notify,
	})
	if err != nil {
		return ExitError, "", err
	}
	return ExitOK, path, nil
}

// EnsureOlder implements spec.md §6's ensure-older entrypoint: true iff the
// installed record at dbOffset is older than (or equal to, for the release
// field) newVersion/newRelease.
func (o *Orchestrator) EnsureOlder(ctx context.Context, newVersion, newRelease string, dbOffset int64) (bool, error) {
	rec, err := o.DB.GetRecord(ctx, dbOffset)
	if err != nil {
		return false, fail(KindDBCorrupt, err)
	}
	return rpmversion.IsOlderOrEqual(rec.Version, rec.Release, newVersion, newRelease), nil
}

func (o *Orchestrator) runScriptlet(ctx context.Context, rootdir, label, prog, script string, scriptArg int, flags Flags) error {
	if flags.has(FlagNoScripts) || script == "" {
		return nil
	}
	_ = prog // interpreter selection beyond /bin/sh is not modeled; scriptlet.Runner always uses /bin/sh, matching spec.md's "integer argument" contract
	return o.Scriptlet.Run(ctx, rootdir, label, script, scriptArg)
}

func readPackage(r *bufio.Reader) (*header.Lead, *header.Header, error) {
	lead, err := header.ReadLead(r)
	if err != nil {
		return nil, nil, err
	}
	h, err := header.ReadHeaderSection(r)
	if err != nil {
		return nil, nil, fmt.Errorf("reading header section: %w", err)
	}
	return lead, h, nil
}

// buildFileTable derives the per-file table from a header's parallel
// arrays (spec.md §3). Every array is read defensively: a short array
// (fewer entries than FILENAMES) leaves later fields zero-valued rather
// than panicking, since spec.md §8's size-parallelism property is a
// testable invariant, not one this package may assume unchecked input
// satisfies.
func buildFileTable(h *header.Header) ([]FileEntry, error) {
	names, _ := h.GetStringArray(header.TagFileNames)
	modes, _ := h.GetInt16Array(header.TagFileModes)
	sizes, _ := h.GetInt32Array(header.TagFileSizes)
	md5s, _ := h.GetStringArray(header.TagFileMD5s)
	links, _ := h.GetStringArray(header.TagFileLinktos)
	flags, _ := h.GetInt32Array(header.TagFileFlags)
	owners, _ := h.GetStringArray(header.TagFileUserName)
	groups, _ := h.GetStringArray(header.TagFileGroupName)

	files := make([]FileEntry, len(names))
	for i, n := range names {
		f := FileEntry{Index: i, Path: n}
		if i < len(modes) {
			f.Mode = uint32(uint16(modes[i]))
			f.Type = FileTypeFromUnixMode(f.Mode)
		}
		if i < len(sizes) {
			f.Size = int64(sizes[i])
		}
		if i < len(md5s) {
			f.MD5 = md5s[i]
		}
		if i < len(links) {
			f.LinkTo = links[i]
		}
		if i < len(flags) {
			f.Flags = flags[i]
		}
		if i < len(owners) {
			f.Owner = owners[i]
		}
		if i < len(groups) {
			f.Group = groups[i]
		}
		files[i] = f
	}
	return files, nil
}

// backupExisting implements spec.md §4.10's BACKUP-EXISTING state: rename
// path -> path+".rpmorig" for BACKUP, path -> path+".rpmsave" for SAVE,
// before extraction can overwrite it. Rename failure is fatal.
func backupExisting(rootdir string, files []FileEntry) error {
	for _, f := range files {
		var suffix string
		switch f.Action {
		case ActionBackup:
			suffix = ".rpmorig"
		case ActionSave:
			suffix = ".rpmsave"
		default:
			continue
		}
		path := joinRoot(rootdir, f.Path)
		if _, err := os.Lstat(path); err != nil {
			continue // nothing on disk to preserve
		}
		if err := os.Rename(path, path+suffix); err != nil {
			return failPath(KindRename, path, err)
		}
	}
	return nil
}

// filesToExtract excludes SKIP actions and rebases names the way the
// extractor needs: relative to the chdir it already performs into rootdir.
// relocationLength (spec.md §4.2) is recorded on the relocation result for
// callers that need to know how many leading bytes of a filename came from
// the package's own default prefix; it doesn't change what gets handed to
// the extractor here, since FILENAMES by this point (after Relocate) is
// already the absolute, install-time path for every file regardless of
// which relocation branch produced it.
func filesToExtract(files []FileEntry, relocationLength int) []archive.FileToExtract {
	_ = relocationLength
	out := make([]archive.FileToExtract, 0, len(files))
	for _, f := range files {
		if f.Action == ActionSkip {
			continue
		}
		out = append(out, archive.FileToExtract{Name: trimLeadingSlash(f.Path), Size: f.Size})
	}
	return out
}

func trimLeadingSlash(s string) string {
	if len(s) > 0 && s[0] == '/' {
		return s[1:]
	}
	return s
}

// markExtractedStates implements the action->state map spec.md §8 requires:
// NORMAL for every installed action, NOTINSTALLED for SKIP.
func markExtractedStates(files []FileEntry) {
	for i := range files {
		if files[i].Action == ActionSkip {
			files[i].State = StateNotInstalled
		} else {
			files[i].State = StateNormal
		}
	}
}

// noopRemover is the default PackageRemover: spec.md §1 scopes removal
// itself out of the core, beyond invoking this entrypoint during upgrade
// cleanup, so the default wiring is a caller-supplied no-op until a real
// removal engine is plugged in.
type noopRemover struct{}

func (noopRemover) RemovePackage(ctx context.Context, rootdir string, db Database, offset int64, flags int) error {
	return nil
}
