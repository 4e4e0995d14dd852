package engine

import (
	"fmt"
	"io"

	"github.com/shapestone/yaml-doctor/internal/issue"
	"github.com/shapestone/yaml-doctor/internal/posmap"
)

// session is the live state for one Check call (spec §3's ParseSession).
// It owns both buffers exclusively and is discarded once Check returns.
type session struct {
	stateMap *posmap.Map
	fixedMap *posmap.Map

	opts Options

	issues []issue.Issue
	seen   map[issue.Key]bool

	thresholds map[string]int

	unescapedCount int

	debug io.Writer
}

func newSession(text string, opts Options) *session {
	debug := opts.DebugWriter
	if debug == nil {
		debug = io.Discard
	}
	return &session{
		stateMap:   posmap.New(text),
		fixedMap:   posmap.New(text),
		opts:       opts,
		seen:       make(map[issue.Key]bool),
		thresholds: make(map[string]int),
		debug:      debug,
	}
}

// state returns the current buffer the base parser is reading from.
func (s *session) state() string { return s.stateMap.Value() }

// threshold returns the highest position already examined by detector
// name, defaulting to -1 so every site is examined at least once.
func (s *session) threshold(name string) int {
	if v, ok := s.thresholds[name]; ok {
		return v
	}
	return -1
}

func (s *session) setThreshold(name string, pos int) {
	if pos > s.thresholds[name] {
		s.thresholds[name] = pos
	}
}

// mark builds a Mark for a position in the state buffer, translating it
// back to the original source.
func (s *session) mark(statePos int) issue.Mark {
	m := s.stateMap.MarkOriginalPosition(statePos)
	return issue.Mark{
		Position: issue.Position(m.Position),
		Line:     m.Line,
		Column:   m.Column,
		Filename: s.opts.Filename,
	}
}

// report records an issue, deduping on (position, reason) per spec §3.
// Returns false if the issue was a duplicate (and thus not recorded).
func (s *session) report(level issue.Level, reason string, statePos int) bool {
	mk := s.mark(statePos)
	key := issue.Key{Position: mk.Position, Reason: reason}
	if s.seen[key] {
		return false
	}
	s.seen[key] = true
	s.issues = append(s.issues, issue.Issue{
		Level:    level,
		Reason:   reason,
		Mark:     mk,
		Filename: s.opts.Filename,
	})
	s.logf("issue: %s %s at %s", level, reason, mk)
	return true
}

// promoteLast marks the most recently recorded issue as Fixed.
func (s *session) promoteLast() {
	if len(s.issues) == 0 {
		return
	}
	last := &s.issues[len(s.issues)-1]
	*last = last.AsFixed()
}

// repair applies a splice to the state buffer at statePos, and — when
// fixing is enabled — the equivalent splice to the fixed buffer,
// translated through the original buffer since the two buffers drift
// independently (spec §9, "two parallel buffers").
func (s *session) repair(statePos, stateRemove int, stateInsert string, fixedRemove int, fixedInsert string) {
	origPos := s.stateMap.OriginalPosition(statePos)
	s.stateMap.Splice(statePos, stateRemove, stateInsert)
	if s.opts.Fix {
		fixedPos := s.fixedMap.CurrentPosition(origPos)
		s.fixedMap.Splice(fixedPos, fixedRemove, fixedInsert)
	}
}

// repairBoth is repair for the common case where the same text is
// spliced into both buffers.
func (s *session) repairBoth(statePos, remove int, insert string) {
	s.repair(statePos, remove, insert, remove, insert)
}

func (s *session) logf(format string, args ...any) {
	if s.opts.Debug {
		fmt.Fprintf(s.debug, format+"\n", args...)
	}
}
