package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/holorpm/rpminstall/internal/install"
	"github.com/holorpm/rpminstall/internal/rpmdb"
	"github.com/holorpm/rpminstall/internal/sink"
)

type options struct {
	rootDir      string
	dbPath       string
	location     string
	flags        install.Flags
	printVersion bool
	printHelp    bool
	source       bool
}

func main() {
	// __apply-ownership is an internal subcommand: the chroot helper
	// (internal/install.OwnershipApplier.applyChrooted) re-execs this same
	// binary with this argument after arranging SysProcAttr.Chroot, rather
	// than calling chroot(2) from the long-lived process.
	if len(os.Args) > 1 && os.Args[1] == "__apply-ownership" {
		os.Exit(runApplyOwnershipHelper())
	}

	opts, earlyExit := parseArgs(os.Args[1:])
	if earlyExit {
		return
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	sk := sink.New(logger)

	db, err := rpmdb.Open(opts.dbPath)
	if err != nil {
		showError(fmt.Errorf("opening package database: %w", err))
		os.Exit(2)
	}
	defer db.Close()

	orch := install.New(db, sk)

	ctx := context.Background()
	var code install.ExitCode
	if opts.source {
		code, _, err = orch.InstallSource(ctx, opts.rootDir, os.Stdin, nil, opts.flags&install.FlagTest != 0)
	} else {
		code, err = orch.InstallBinary(ctx, opts.rootDir, os.Stdin, opts.location, opts.flags, nil, "")
	}
	if err != nil {
		showError(err)
	}
	os.Exit(int(code))
}

func runApplyOwnershipHelper() int {
	// The remaining args carry only the subcommand name; the file list
	// travels on stdin (internal/install.ownershipManifest), matching the
	// side-channel-not-argv convention the archive driver already uses for
	// large file lists (spec.md §4.6).
	return install.RunApplyOwnershipHelper(os.Stdin)
}

func parseArgs(args []string) (opts options, exit bool) {
	opts.rootDir = "/"
	opts.dbPath = "/var/lib/rpminstall/packages.db"

	hasArgsError := false
	for _, arg := range args {
		switch {
		case arg == "--help":
			printHelp()
			return opts, true
		case arg == "--version":
			fmt.Println("rpminstall (core install engine)")
			return opts, true
		case arg == "--test":
			opts.flags |= install.FlagTest
		case arg == "--upgrade":
			opts.flags |= install.FlagUpgrade
		case arg == "--oldpackage":
			opts.flags |= install.FlagUpgradeToOld
		case arg == "--replacepkgs":
			opts.flags |= install.FlagReplacePkg
		case arg == "--replacefiles":
			opts.flags |= install.FlagReplaceFiles
		case arg == "--noarch":
			opts.flags |= install.FlagNoArch
		case arg == "--noos":
			opts.flags |= install.FlagNoOS
		case arg == "--noscripts":
			opts.flags |= install.FlagNoScripts
		case arg == "--nodocs":
			opts.flags |= install.FlagNoDocs
		case arg == "--source":
			opts.source = true
		case strings.HasPrefix(arg, "--root="):
			opts.rootDir = strings.TrimPrefix(arg, "--root=")
		case strings.HasPrefix(arg, "--dbpath="):
			opts.dbPath = strings.TrimPrefix(arg, "--dbpath=")
		case strings.HasPrefix(arg, "--prefix="):
			opts.location = strings.TrimPrefix(arg, "--prefix=")
		default:
			showError(fmt.Errorf("unrecognized argument: %q", arg))
			hasArgsError = true
		}
	}
	if hasArgsError {
		printHelp()
		os.Exit(1)
	}
	return opts, false
}

func printHelp() {
	program := os.Args[0]
	fmt.Printf("Usage: %s <options> < packagefile\n\nOptions:\n", program)
	fmt.Println("  --root=PATH\t\tInstall into PATH instead of /")
	fmt.Println("  --dbpath=PATH\t\tUse the package database at PATH")
	fmt.Println("  --prefix=PATH\t\tRelocate a relocatable package to PATH")
	fmt.Println("  --test\t\tDon't install, just report what would happen")
	fmt.Println("  --upgrade\t\tAllow replacing older installed versions")
	fmt.Println("  --oldpackage\t\tAllow downgrading over a newer installed version")
	fmt.Println("  --replacepkgs\t\tAllow reinstalling the same version")
	fmt.Println("  --replacefiles\tAllow replacing files owned by other packages")
	fmt.Println("  --noarch\t\tSkip the architecture compatibility check")
	fmt.Println("  --noos\t\tSkip the operating-system compatibility check")
	fmt.Println("  --noscripts\t\tDon't run pre/post install scriptlets")
	fmt.Println("  --nodocs\t\tSkip files flagged as documentation")
	fmt.Println("  --source\t\tInstall a source package instead of a binary one")
}

func showError(err error) {
	var installErr *install.Error
	if errors.As(err, &installErr) {
		fmt.Fprintf(os.Stderr, "\x1b[31m\x1b[1m!!\x1b[0m %s: %s\n", installErr.Kind, installErr.Error())
		return
	}
	fmt.Fprintf(os.Stderr, "\x1b[31m\x1b[1m!!\x1b[0m %s\n", err.Error())
}
