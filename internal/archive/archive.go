// Package archive implements the archive-extractor collaborator named in
// spec.md §1 and driven in detail by §4.6: it streams a compressed
// CPIO-like archive into a target directory, optionally filtered by a
// filename list, reporting each extracted filename on a side channel.
//
// Decompression follows the idiom quay-claircore uses when it has to peel
// an xz-family layer off an upstream archive before handing the plaintext
// to a format-specific reader (internal/indexer/fetcher/fetcher.go,
// pkg/tarfs/parse.go): github.com/ulikunitz/xz wraps the input stream.
// Extraction itself is delegated to the external cpio(1) binary via
// os/exec, the same "shell out to the real tool" idiom the teacher uses for
// LZMA compression in rpm/payload.go's exec.Command("xz", ...) -- CPIO
// byte-format fidelity is explicitly out of scope (spec.md §1 non-goals).
package archive

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/ulikunitz/xz"
)

// FileToExtract names one member of the archive the caller wants, along
// with its expected size (spec.md §4.6).
type FileToExtract struct {
	Name string
	Size int64
}

// Options configures one Install call.
type Options struct {
	// Prefix is the directory extraction is rooted at.
	Prefix string
	// Files is the filter list. Ignored when ExtractAll is true.
	Files []FileToExtract
	// ExtractAll is the "extract all" sentinel named in spec.md §4.6, used
	// by the source-package install flow.
	ExtractAll bool
	// TempDir is where the >500-file pattern-file is written (spec.md's
	// TMPPATH).
	TempDir string
	// Notify receives (sizeInstalled, totalSize) progress updates. May be
	// nil.
	Notify func(sizeInstalled, totalSize int64)
	// KnownUncompressedSize, if nonzero, is used as totalSize instead of
	// the sum of Files' expected sizes (spec.md §4.6).
	KnownUncompressedSize int64
}

// Result carries side effects the orchestrator needs back out.
type Result struct {
	// SpecFile is the last filename ending in ".spec" seen on the side
	// channel, used by the source-package installer (spec.md §4.9).
	SpecFile string
}

// Driver drives the cpio(1) child process.
type Driver struct {
	Logger zerolog.Logger

	// CpioPath overrides the binary name, for tests.
	CpioPath string
}

// ErrExtraction wraps any failure classified as "extraction failure" by
// spec.md §4.6: a non-zero cpio exit, abnormal termination, a decompression
// read error, or a short write to the child's stdin pipe.
type ErrExtraction struct{ Err error }

func (e *ErrExtraction) Error() string { return fmt.Sprintf("archive extraction failed: %s", e.Err) }
func (e *ErrExtraction) Unwrap() error { return e.Err }

// Install extracts compressed (an xz-compressed CPIO stream) into
// opts.Prefix, per spec.md §4.6.
func (d *Driver) Install(ctx context.Context, compressed io.Reader, opts Options) (*Result, error) {
	if !opts.ExtractAll && len(opts.Files) == 0 {
		return &Result{}, nil
	}

	files := append([]FileToExtract(nil), opts.Files...)
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	var totalSize int64
	if opts.KnownUncompressedSize > 0 {
		totalSize = opts.KnownUncompressedSize
	} else {
		for _, f := range files {
			totalSize += f.Size
		}
	}

	cpioPath := d.CpioPath
	if cpioPath == "" {
		cpioPath = "cpio"
	}

	var tempListPath string
	args := []string{"-idmu", "--quiet"}
	// -v makes cpio list each extracted name on stderr, the side channel
	// drainStatusLines reads for progress and .spec discovery.
	if opts.Notify != nil || opts.ExtractAll {
		args = append(args, "-v")
	}
	if !opts.ExtractAll {
		if len(files) > 500 {
			var err error
			tempListPath, err = writeFileList(opts.TempDir, files)
			if err != nil {
				return nil, fmt.Errorf("archive: writing pattern file: %w", err)
			}
			args = append(args, "-E", tempListPath)
		} else {
			for _, f := range files {
				args = append(args, f.Name)
			}
		}
	}

	if opts.Prefix != "" {
		if err := os.MkdirAll(opts.Prefix, 0755); err != nil {
			return nil, fmt.Errorf("archive: creating prefix: %w", err)
		}
	}

	cmd := exec.CommandContext(ctx, cpioPath, args...)
	cmd.Dir = opts.Prefix

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("archive: stdin pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("archive: stderr pipe: %w", err)
	}
	cmd.Stdout = io.Discard

	// SIGPIPE delivered to this process (as opposed to an EPIPE error
	// returned from a failed pipe write, which Go already surfaces as a
	// plain error) only happens via fd 1/2; there is none here to mask.
	// We still install-then-restore an ignore handler for the duration,
	// matching spec.md §5's "SIGPIPE is masked during extraction and
	// restored after" literally rather than relying on that Go nuance.
	restoreSigpipe := ignoreSigpipe()
	defer restoreSigpipe()

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("archive: starting %s: %w", cpioPath, err)
	}

	result := &Result{}
	var tempListOnce sync.Once
	removeTempList := func() {
		if tempListPath != "" {
			tempListOnce.Do(func() { os.Remove(tempListPath) })
		}
	}
	defer removeTempList()

	var sizeInstalled int64
	statusDone := make(chan error, 1)
	go func() {
		statusDone <- drainStatusLines(stderr, files, &sizeInstalled, totalSize, opts.Notify, result, removeTempList)
	}()

	decompressErr := make(chan error, 1)
	go func() {
		decompressErr <- pumpDecompressed(compressed, stdin)
	}()

	pumpErr := <-decompressErr
	statusErr := <-statusDone
	waitErr := cmd.Wait()

	if pumpErr != nil {
		killChild(cmd)
		return nil, &ErrExtraction{Err: fmt.Errorf("feeding compressed data: %w", pumpErr)}
	}
	if statusErr != nil {
		return nil, &ErrExtraction{Err: fmt.Errorf("reading status channel: %w", statusErr)}
	}
	if waitErr != nil {
		return nil, &ErrExtraction{Err: fmt.Errorf("cpio exited abnormally: %w", waitErr)}
	}

	if opts.Notify != nil {
		opts.Notify(totalSize, totalSize)
	}
	return result, nil
}

// pumpDecompressed decompresses src and streams plaintext to dst, closing
// dst on completion or error so the child observes EOF/failure.
func pumpDecompressed(src io.Reader, dst io.WriteCloser) error {
	defer dst.Close()
	r, err := xz.NewReader(src)
	if err != nil {
		return fmt.Errorf("opening xz stream: %w", err)
	}
	buf := make([]byte, 32*1024)
	for {
		n, rerr := r.Read(buf)
		if n > 0 {
			written, werr := dst.Write(buf[:n])
			if werr != nil {
				return fmt.Errorf("short write to extractor: %w", werr)
			}
			if written != n {
				return fmt.Errorf("short write to extractor: wrote %d of %d bytes", written, n)
			}
		}
		if rerr == io.EOF {
			return nil
		}
		if rerr != nil {
			return fmt.Errorf("decompressing archive: %w", rerr)
		}
	}
}

// drainStatusLines reads the child's per-file completion lines (spec.md's
// "side channel"). Each complete line names one finished file; its size is
// found by bsearching the (already sorted) file table and added to
// *sizeInstalled, then Notify is called. The first line observed triggers
// removal of the pattern-file tempfile (spec.md: "removed as soon as the
// first side-channel event arrives").
func drainStatusLines(r io.Reader, files []FileToExtract, sizeInstalled *int64, totalSize int64, notify func(int64, int64), result *Result, onFirstEvent func()) error {
	scanner := bufio.NewScanner(r)
	first := true
	for scanner.Scan() {
		if first {
			onFirstEvent()
			first = false
		}
		name := strings.TrimSpace(scanner.Text())
		if name == "" {
			continue
		}
		idx := sort.Search(len(files), func(i int) bool { return files[i].Name >= name })
		if idx < len(files) && files[idx].Name == name {
			*sizeInstalled += files[idx].Size
		}
		if notify != nil {
			notify(*sizeInstalled, totalSize)
		}
		if len(name) >= 5 && name[len(name)-5:] == ".spec" {
			result.SpecFile = name
		}
	}
	return scanner.Err()
}

func writeFileList(tempDir string, files []FileToExtract) (string, error) {
	path := filepath.Join(tempDir, fmt.Sprintf("rpm-cpiofilelist.%d.tmp", os.Getpid()))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	for _, file := range files {
		if _, err := w.WriteString(file.Name + "\n"); err != nil {
			return "", err
		}
	}
	if err := w.Flush(); err != nil {
		return "", err
	}
	return path, nil
}

func killChild(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	// Process.Signal takes only the signal and targets this child's own pid,
	// so the argument-transposition bug spec.md §9 notes in the original C
	// implementation cannot occur here.
	_ = cmd.Process.Signal(syscall.SIGTERM)
}
