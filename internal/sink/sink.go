// Package sink implements the message/error sink collaborator named in
// spec.md §1: a place for the install pipeline to report both fatal errors
// and the best-effort failures that spec.md §7 says must be logged, not
// propagated.
package sink

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// Collector aggregates multiple independent errors for collective display.
// Ported in idiom from the teacher's ErrorCollector (errorcollector.go):
// same Add/Addf API, widened with an OK() convenience and renamed to fit a
// library rather than a one-shot CLI.
type Collector struct {
	Errors []error
}

// Add appends err if non-nil, so call sites can write
// c.Add(operationThatMightFail()) unconditionally.
func (c *Collector) Add(err error) {
	if err != nil {
		c.Errors = append(c.Errors, err)
	}
}

// Addf appends an error built from a format string.
func (c *Collector) Addf(format string, args ...interface{}) {
	if len(args) > 0 {
		c.Errors = append(c.Errors, fmt.Errorf(format, args...))
	} else {
		c.Errors = append(c.Errors, errors.New(format))
	}
}

// OK reports whether no errors have been collected.
func (c *Collector) OK() bool { return len(c.Errors) == 0 }

// Err joins the collected errors into one, or returns nil if there were
// none.
func (c *Collector) Err() error {
	if len(c.Errors) == 0 {
		return nil
	}
	return errors.Join(c.Errors...)
}

// Sink is the install pipeline's logging/error-reporting collaborator. The
// orchestrator and the ownership applier hold one, rather than writing to
// stderr directly, so callers embedding this engine (a CLI, a daemon, a
// test) can route messages wherever they like -- matching how
// quay-claircore's scanners thread a *zerolog.Logger through rather than
// calling the global logger.
type Sink struct {
	Logger zerolog.Logger
}

// New wraps an existing zerolog.Logger.
func New(logger zerolog.Logger) *Sink {
	return &Sink{Logger: logger}
}

// Warn logs a best-effort failure (spec.md §7: "log failures and continue").
func (s *Sink) Warn(err error, msg string) {
	s.Logger.Warn().Err(err).Msg(msg)
}

// Error logs a fatal-path failure before it is returned to the caller.
func (s *Sink) Error(err error, msg string) {
	s.Logger.Error().Err(err).Msg(msg)
}

// Info logs a pipeline transition (state changes, scriptlet invocations).
func (s *Sink) Info(msg string) {
	s.Logger.Info().Msg(msg)
}
