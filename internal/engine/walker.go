package engine

import (
	"regexp"

	"github.com/shapestone/yaml-doctor/internal/oracle"
)

// run drives the simplified base YAML parser described in spec §9: a
// pull-style walker with a position cursor, since this module has no
// external parser with the in-place-splice callback contract §4.1
// requires. It fires the same open/close detector hooks a wrapped
// off-the-shelf parser would, at block mappings, block sequences, flow
// collections and scalars.
func (s *session) run() {
	pos := s.skipDirectivesAndMarkers(0)
	s.parseBlock(pos)
}

// directiveOrMarker matches a %YAML/%TAG directive line or a document
// marker (---, ...), none of which carry scalar content.
var directiveOrMarker = regexp.MustCompile(`^(%\S.*|---.*|\.\.\..*)\n?`)

func (s *session) skipDirectivesAndMarkers(pos int) int {
	for {
		buf := s.state()
		if pos >= len(buf) {
			return pos
		}
		loc := directiveOrMarker.FindStringIndex(buf[pos:])
		if loc == nil || loc[0] != 0 {
			return pos
		}
		pos += loc[1]
	}
}

// parseBlock parses a sequence of block-mapping entries or block-sequence
// items, all sharing the indent of the first entry encountered at pos. It
// returns the position just past the block (the first line dedented
// below that indent, or EOF).
func (s *session) parseBlock(pos int) int {
	buf := s.state()
	pos = skipBlankAndComments(buf, pos)
	if pos >= len(buf) {
		return pos
	}
	indent := indentOf(buf, pos)
	return s.parseBlockAtIndent(pos, indent)
}

func (s *session) parseBlockAtIndent(pos, indent int) int {
	for {
		buf := s.state()
		pos = skipBlankAndComments(buf, pos)
		if pos >= len(buf) {
			return pos
		}
		ls := lineStart(buf, pos)
		if pos-ls != indent {
			return pos // dedent (or over-indent under a malformed entry): end of this block
		}
		pos = s.parseBlockEntry(pos, indent)
	}
}

// skipBlankAndComments advances pos past blank lines and comment-only
// lines (a "#" as the first non-space character on the line).
func skipBlankAndComments(buf string, pos int) int {
	for pos < len(buf) {
		ls := lineStart(buf, pos)
		nonSpace := findNextNonSpace(buf, ls)
		if nonSpace >= lineEnd(buf, ls) || (nonSpace < len(buf) && buf[nonSpace] == '#') {
			le := lineEnd(buf, pos)
			if le >= len(buf) {
				return le
			}
			pos = le + 1
			continue
		}
		return nonSpace
	}
	return pos
}

// anchorOrTagPrefix matches an optional "&anchor" and/or "!tag" prefix
// before a node's real content, capturing the anchor name (without &) if
// present.
var anchorOrTagPrefix = regexp.MustCompile(`^(&(\S+)\s+)?(!\S+\s+)?`)

// parseBlockEntry parses one block-sequence item ("- value") or block-
// mapping entry ("key: value") starting at pos, whose line is indented
// exactly to indent. Returns the position just past the entry (the start
// of the next line to consider).
func (s *session) parseBlockEntry(pos, indent int) int {
	buf := s.state()
	if buf[pos] == '-' && (pos+1 >= len(buf) || buf[pos+1] == ' ' || buf[pos+1] == '\n') {
		return s.parseSequenceItem(pos, indent)
	}
	return s.parseMappingEntry(pos, indent)
}

func (s *session) parseSequenceItem(pos, indent int) int {
	dashEnd := pos + 1
	valueStart := findNextNonSpace(s.state(), dashEnd)
	buf := s.state()
	if valueStart >= len(buf) || buf[valueStart] == '\n' {
		// empty item on this line: the value is a nested block on
		// subsequent, deeper-indented lines.
		return s.parseBlock(lineEnd(buf, pos) + 1)
	}
	if buf[valueStart] == '-' && (valueStart+1 >= len(buf) || buf[valueStart+1] == ' ' || buf[valueStart+1] == '\n') {
		// nested sequence item on the same line ("- - a").
		return s.parseSequenceItem(valueStart, valueStart-lineStart(buf, valueStart))
	}
	// "- key: value" is a mapping entry; anything else falls through to
	// parseNodeValue inside parseMappingEntry.
	return s.parseMappingEntry(valueStart, indent)
}

// mappingKey matches a block-mapping key up to its separating colon: a
// quoted key, or a plain key that cannot itself contain ": ".
var mappingKey = regexp.MustCompile(`^('([^']|'')*'|"([^"\\]|\\.)*"|[^:\n]+?):( |$|\n)`)

func (s *session) parseMappingEntry(pos, indent int) int {
	buf := s.state()
	lineTail := buf[pos:lineEnd(buf, pos)]
	loc := mappingKey.FindStringSubmatchIndex(lineTail)
	if loc == nil {
		// Not a recognizable "key:" line (e.g. a bare plain scalar used
		// as a block-level value by itself): treat the rest of the line
		// as a scalar node.
		return s.parseNodeValue(pos, indent)
	}
	keyStart := pos
	colonPos := pos + loc[3] // loc[2]:loc[3] is the captured key; ':' sits right after it

	if buf[keyStart] == '\'' || buf[keyStart] == '"' {
		s.runOpenDetectors(keyStart, indent)
	}

	valueStart := findNextNonSpace(buf, colonPos+1)
	if valueStart >= len(buf) || valueStart >= lineEnd(buf, colonPos) {
		// value is empty on this line: either a nested block below, or a
		// genuinely null value (nothing follows at a deeper indent).
		nextLine := lineEnd(buf, pos) + 1
		nb := skipBlankAndComments(buf, nextLine)
		if nb < len(buf) && indentOf(buf, nb) > indent {
			return s.parseBlock(nb)
		}
		return nextLine
	}
	return s.parseNodeValue(valueStart, indent)
}

// parseNodeValue parses whatever sits at pos as a single node value: an
// anchor/tag prefix, then a block scalar, flow collection, or flow
// (plain/quoted) scalar. indent is the enclosing block's indent, used by
// detectors and the oracle to judge scalar continuation lines.
func (s *session) parseNodeValue(pos, indent int) int {
	buf := s.state()
	m := anchorOrTagPrefix.FindStringSubmatchIndex(buf[pos:])
	anchorName := ""
	contentStart := pos
	if m != nil {
		contentStart = pos + m[1]
		if m[4] >= 0 {
			anchorName = buf[pos+m[4] : pos+m[5]]
		}
	}
	buf = s.state()
	if contentStart >= len(buf) || buf[contentStart] == '\n' {
		return contentStart
	}

	var end int
	switch buf[contentStart] {
	case '|', '>':
		end = s.parseBlockScalar(contentStart, indent)
	case '[':
		// detectLeadingBracket (spec §4.1 item 4) gets first refusal: a
		// "[...]" that looks like a mistyped plain string, not a real
		// flow sequence, is wrapped in quotes instead of being parsed as
		// one.
		end = s.runOpenDetectors(contentStart, indent)
		if end == contentStart {
			end = s.parseFlow(contentStart, indent)
		}
	case '{':
		// detectUnquotedVariable (spec §4.1 item 2) gets first refusal: an
		// unquoted "{{ var }}" is wrapped in quotes instead of being
		// parsed as a flow mapping.
		end = s.runOpenDetectors(contentStart, indent)
		if end == contentStart {
			end = s.parseFlow(contentStart, indent)
		}
	default:
		end = s.runOpenDetectors(contentStart, indent)
		if end == contentStart {
			// No detector matched: this is an ordinary scalar (quoted
			// scalars are fully consumed by runOpenDetectors already;
			// this branch is the common plain-scalar case). Advance past
			// it using the plain-scalar oracle so the caller resumes
			// after its true end, honoring continuation lines.
			end = plainScalarEnd(s.state(), contentStart, indent)
		}
	}
	s.checkAnchorLooksLikeEntity(anchorName, contentStart)
	return lineEnd(s.state(), end) + 1
}

// blockScalarHeader matches a block scalar indicator's trailing chomping
// / explicit-indent modifiers (+, -, digits) up to end of line.
var blockScalarHeader = regexp.MustCompile(`^[|>][+\-]?\d*`)

// parseBlockScalar skips a "|" or ">" block scalar: every subsequent line
// indented more than indent belongs to it. Block scalars are out of
// scope for the oracle (glossary) and for the detectors; this engine just
// needs to consume them without misinterpreting their content as flow
// syntax.
func (s *session) parseBlockScalar(pos, indent int) int {
	buf := s.state()
	loc := blockScalarHeader.FindStringIndex(buf[pos:])
	end := pos + loc[1]
	lineAfter := lineEnd(buf, end) + 1
	for lineAfter < len(buf) {
		ls := lineAfter
		nonSpace := findNextNonSpace(buf, ls)
		isBlank := nonSpace >= lineEnd(buf, ls)
		if !isBlank && nonSpace-ls <= indent {
			break
		}
		lineAfter = lineEnd(buf, lineAfter) + 1
	}
	return lineAfter - 1
}

// plainScalarEnd implements the ScalarBoundaryOracle's plain-scalar rule
// (spec §4.4) for advancing the walker past a value that was not claimed
// by any detector. oracle.Plain reports the newline before the first
// continuation line as the end, so the continuation lines themselves
// (indented past indent, non-blank) are stepped over here.
func plainScalarEnd(buf string, start, indent int) int {
	pos := oracle.Plain(buf, start, indent)
	if pos < 0 || pos > len(buf) {
		pos = len(buf)
	}
	for pos < len(buf) && buf[pos] == '\n' {
		next := lineEnd(buf, pos+1)
		n := 0
		for pos+1+n < next && buf[pos+1+n] == ' ' {
			n++
		}
		if n <= indent || pos+1+n >= next {
			break
		}
		pos = next
	}
	return pos
}

// parseFlow parses a "[...]" or "{...}" flow collection starting at pos:
// it locates the matching close bracket, splits the interior into
// top-level (depth-0, outside-quotes) comma-separated items, and for each
// item either recurses (nested flow collection) or runs the open
// detectors directly (scalar item). Returns the position just past the
// closing bracket.
func (s *session) parseFlow(pos, indent int) int {
	buf := s.state()
	closeIdx := matchingFlowClose(buf, pos)
	inner := pos + 1
	itemBounds := splitFlowItems(buf, inner, closeIdx)
	for _, b := range itemBounds {
		buf = s.state()
		itemStart := findNextNonSpace(buf, b[0])
		if itemStart >= b[1] {
			continue
		}
		if buf[itemStart] == '[' || buf[itemStart] == '{' {
			s.parseFlow(itemStart, indent)
			continue
		}
		s.runOpenDetectors(itemStart, indent)
	}
	buf = s.state()
	if closeIdx < len(buf) {
		return closeIdx + 1
	}
	return len(buf)
}

// matchingFlowClose finds the index of the bracket that closes the flow
// collection opened at pos, honoring nested brackets and quoted scalars
// (which may themselves contain unbalanced-looking bracket characters).
// It returns len(buf) if the collection is never closed.
func matchingFlowClose(buf string, pos int) int {
	open := buf[pos]
	closeByte := byte(']')
	if open == '{' {
		closeByte = '}'
	}
	depth := 0
	i := pos
	for i < len(buf) {
		c := buf[i]
		switch {
		case c == '"' || c == '\'':
			end := scalarCloseQuote(buf, i)
			i = end + 1
			continue
		case c == '[' || c == '{':
			depth++
		case c == ']' || c == '}':
			depth--
			if depth == 0 && c == closeByte {
				return i
			}
		}
		i++
	}
	return len(buf)
}

// splitFlowItems returns the [start, end) byte ranges of each top-level,
// comma-separated item in buf[from:to), skipping over nested brackets
// and quoted scalars when scanning for the separating commas.
func splitFlowItems(buf string, from, to int) [][2]int {
	var items [][2]int
	depth := 0
	itemStart := from
	i := from
	for i < to {
		c := buf[i]
		switch {
		case c == '"' || c == '\'':
			i = scalarCloseQuote(buf, i) + 1
			continue
		case c == '[' || c == '{':
			depth++
		case c == ']' || c == '}':
			depth--
		case c == ',' && depth == 0:
			items = append(items, [2]int{itemStart, i})
			itemStart = i + 1
		}
		i++
	}
	if itemStart < to || len(items) > 0 {
		items = append(items, [2]int{itemStart, to})
	}
	return items
}

