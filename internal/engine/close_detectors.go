package engine

import (
	"regexp"
	"strings"

	"github.com/shapestone/yaml-doctor/internal/issue"
)

// htmlEntityAnchor matches an anchor name that looks like it was meant
// to be an HTML entity reference, spec §4.1 item 5.
var htmlEntityAnchor = regexp.MustCompile(`^((#\d+)|(#x[0-9a-fA-F]+)|(\w+));$`)

// checkAnchorLooksLikeEntity implements detector 5: runs when a node
// closes and carried an anchor. Never auto-fixed (quoting could change
// the document's meaning), per spec §9 open questions.
func (s *session) checkAnchorLooksLikeEntity(anchorName string, statePos int) {
	if anchorName == "" {
		return
	}
	if htmlEntityAnchor.MatchString(anchorName) {
		s.report(issue.Warning, "anchor name looks like an HTML entity reference, consider quoting it", statePos)
	}
}

// deficientIndentWarning is a warning captured while scanning a
// multi-line flow scalar: a continuation line indented less than the
// scalar requires.
type deficientIndentWarning struct {
	statePos    int // position of the first non-space character on the under-indented line
	tokenIndent int // the indent the opening line of the scalar had
	firstLine   bool
}

// applyDeficientIndentFixes implements detector 6: when a scalar node
// closes, pad each recorded deficient-indentation line to
// tokenIndent+2 columns and relabel the warning Fixed.
func (s *session) applyDeficientIndentFixes(warnings []deficientIndentWarning) {
	// Process from the last line to the first: each repair only ever
	// inserts text before later warnings' (already-applied) positions,
	// never before an earlier, not-yet-processed one, so positions
	// captured before this loop started remain valid throughout.
	for i := len(warnings) - 1; i >= 0; i-- {
		w := warnings[i]
		if w.firstLine {
			continue // first line of the scalar is never re-indented
		}
		want := w.tokenIndent + 2
		buf := s.state()
		ls := lineStart(buf, w.statePos)
		have := w.statePos - ls
		if have >= want {
			continue
		}
		idx := len(s.issues) - 1
		for ; idx >= 0; idx-- {
			if s.issues[idx].Mark.Position == issue.Position(s.stateMap.OriginalPosition(w.statePos)) {
				break
			}
		}
		pad := strings.Repeat(" ", want-have)
		s.repairBoth(ls, 0, pad)
		if idx >= 0 {
			s.issues[idx] = s.issues[idx].AsFixed()
		}
	}
}
