// Package engine implements the ParseListener described in spec §4.1: it
// drives a base YAML parser over a mutable buffer, detects common
// authoring mistakes at each node boundary, repairs the buffer in place
// so parsing can continue, and reports issues with marks translated back
// to the original source.
package engine

import (
	"fmt"
	"io"

	"github.com/shapestone/yaml-doctor/internal/invariant"
	"github.com/shapestone/yaml-doctor/internal/issue"
)

// Options configures a Check call.
type Options struct {
	// Fix enables repair: a non-nil Result.Fixed is only ever produced
	// when Fix is true.
	Fix bool
	// RemoveInvalidCharacters controls whether non-printable code points
	// are deleted from the fixed buffer (they are always deleted from
	// the state buffer, which cannot tolerate them). The zero value is
	// false, which keeps them in the fixed buffer; pkg/doctor defaults
	// it to true.
	RemoveInvalidCharacters bool
	// Debug, when true, writes one line per reported issue to
	// DebugWriter (defaulting to io.Discard).
	Debug       bool
	DebugWriter io.Writer
	// Filename is carried into every reported Mark and Issue.
	Filename string
}

// Result is the outcome of a Check call.
type Result struct {
	Issues []issue.Issue
	// Fixed holds the repaired source, or nil when Options.Fix is false.
	Fixed *string
}

// InternalError reports a collaborator fault: a bug in this engine, not a
// YAML authoring mistake. Spec §4.1 reserves this for faults that carry
// no position mark. Check never returns one for ordinary malformed YAML.
type InternalError struct {
	Err error
}

func (e *InternalError) Error() string { return fmt.Sprintf("yaml-doctor: internal error: %v", e.Err) }
func (e *InternalError) Unwrap() error { return e.Err }

// Check runs the listener over text and returns every issue found, plus
// the repaired source when opts.Fix is set. It never returns an error for
// YAML syntax faults — those become Result.Issues — only for a bug in the
// engine itself.
func Check(text string, opts Options) (result Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			e, ok := r.(error)
			if !ok {
				e = fmt.Errorf("%v", r)
			}
			err = &InternalError{Err: e}
		}
	}()

	s := newSession(text, opts)
	s.scanInvariants()
	s.run()
	s.scanMixedIndentation()

	result = Result{Issues: s.issues}
	if opts.Fix {
		f := s.fixedMap.Value()
		result.Fixed = &f
	}
	return result, nil
}

// scanInvariants implements spec §4.5: it runs before the base parser
// ever sees the buffer, deleting disallowed code points from the state
// buffer unconditionally (the parser cannot tolerate them) and from the
// fixed buffer only when fixing with RemoveInvalidCharacters.
func (s *session) scanInvariants() {
	occurrences := invariant.Scan(s.state())
	// Delete from the end backward so earlier occurrences' positions
	// (captured against the pre-edit buffer) stay valid.
	for i := len(occurrences) - 1; i >= 0; i-- {
		occ := occurrences[i]
		reason := fmt.Sprintf("The non-printable character #x%X is not allowed in YAML", occ.Rune)
		fixed := s.opts.Fix && s.opts.RemoveInvalidCharacters
		if s.report(issue.Error, reason, occ.Position) {
			if fixed {
				s.repair(occ.Position, occ.Size, "", occ.Size, "")
				s.promoteLast()
			} else {
				s.repair(occ.Position, occ.Size, "", 0, "")
			}
		}
	}
}

// scanMixedIndentation implements spec §4.1's "terminating error handling"
// special case: a base parser's "bad indentation" error is rewritten to
// "line is indented with mixed spaces and tabs" when the offending line
// mixes the two, and suppressed entirely when the line's content starts
// with '@' (already reported by detectLeadingAtSign). Unlike the other
// detectors this runs once over the final state buffer rather than at a
// parser event, since a hand-rolled walker has no "throw" to intercept;
// it is never auto-fixed (spec §7 lists it as error-only).
func (s *session) scanMixedIndentation() {
	buf := s.state()
	for pos := 0; pos <= len(buf); {
		le := lineEnd(buf, pos)
		hasSpace, hasTab := false, false
		i := pos
		for i < le && (buf[i] == ' ' || buf[i] == '\t') {
			if buf[i] == ' ' {
				hasSpace = true
			} else {
				hasTab = true
			}
			i++
		}
		at := i
		if at < le && buf[at] == '"' {
			at++ // detectLeadingAtSign has wrapped the token in quotes
		}
		atSignLine := at < le && buf[at] == '@' &&
			s.seen[issue.Key{Position: s.mark(at).Position, Reason: "'@' cannot start any token"}]
		if hasSpace && hasTab && !atSignLine {
			s.report(issue.Error, "line is indented with mixed spaces and tabs", pos)
		}
		if le >= len(buf) {
			break
		}
		pos = le + 1
	}
}
