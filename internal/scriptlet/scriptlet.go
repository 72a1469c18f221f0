// Package scriptlet implements the scriptlet-runner collaborator named in
// spec.md §1: execution of pre/post install scripts with an integer
// argument indicating install count.
//
// Scripts run under /bin/sh, the same interpreter the teacher wires into
// RPMTAG_POSTINPROG/RPMTAG_POSTUNPROG when it builds a header
// (rpm/metadata.go's addInstallationTags).
package scriptlet

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/rs/zerolog"
)

// Runner executes package scriptlets.
type Runner struct {
	Logger zerolog.Logger

	// Disabled mirrors the NOSCRIPTS install flag (spec.md, Install flags
	// table): when true, Run is a no-op success.
	Disabled bool
}

// Run executes script (a shell script body, as stored in a PREIN/POSTIN tag)
// with scriptArg as $1, inside rootdir's namespace via `chroot` when rootdir
// is not "/". Returns an error only for a non-zero exit or a failure to
// start the interpreter; script stdout/stderr are logged, not captured.
func (r *Runner) Run(ctx context.Context, rootdir, label, script string, scriptArg int) error {
	if script == "" || r.Disabled {
		return nil
	}

	var cmd *exec.Cmd
	if rootdir == "" || rootdir == "/" {
		cmd = exec.CommandContext(ctx, "/bin/sh", "-c", script, "/bin/sh", strconv.Itoa(scriptArg))
	} else {
		cmd = exec.CommandContext(ctx, "chroot", rootdir, "/bin/sh", "-c", script, "/bin/sh", strconv.Itoa(scriptArg))
	}

	out, err := cmd.CombinedOutput()
	r.Logger.Info().Str("scriptlet", label).Int("arg", scriptArg).Bytes("output", out).Msg("ran scriptlet")
	if err != nil {
		return fmt.Errorf("scriptlet %s failed: %w", label, err)
	}
	return nil
}
