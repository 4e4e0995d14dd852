package engine

import (
	"regexp"

	"github.com/shapestone/yaml-doctor/internal/issue"
	"github.com/shapestone/yaml-doctor/internal/oracle"
)

// runOpenDetectors runs detectors 1-4 from spec §4.1 at an `open` event,
// i.e. when the walker is about to parse a value starting near pos.
// indent is the block indent in effect at this node. It returns the
// (possibly advanced) position the walker should resume parsing from.
func (s *session) runOpenDetectors(pos, indent int) int {
	buf := s.state()
	tokenStart := findNextNonSpace(buf, pos)

	if tokenStart < len(buf) {
		switch buf[tokenStart] {
		case '\'', '"':
			return s.detectQuotedScalar(tokenStart, indent)
		}
	}

	if next := s.detectUnquotedVariable(buf, tokenStart); next >= 0 {
		return next
	}
	if next := s.detectLeadingAtSign(tokenStart, indent); next >= 0 {
		return next
	}
	if next := s.detectLeadingBracket(tokenStart, indent); next >= 0 {
		return next
	}

	return pos
}

// detectQuotedScalar implements spec §4.1 item 1.
func (s *session) detectQuotedScalar(tokenStart, indent int) int {
	buf := s.state()
	quote := buf[tokenStart]
	guessable := quote == '"'
	pos := tokenStart

	for {
		buf = s.state()
		res := oracle.Quoted(buf, quote, pos, !guessable, indent)

		if res.Exact {
			if res.Position == -1 || afterLooksLikeTerminator(buf, res.Position) {
				break // clean end: proceed to escape validation below
			}

			// Unescaped inner quote.
			escape := "'"
			if quote == '"' {
				escape = `\`
			}
			if s.report(issue.Error, "unescaped quote in quoted string", res.Position) {
				if s.opts.Fix {
					s.repairBoth(res.Position, 0, escape)
					s.promoteLast()
				}
			}
			s.unescapedCount++
			pos = res.Position + 2
			continue
		}

		// Not exact: only reachable when guessable (double-quoted).
		if s.report(issue.Error, "quoted string has no end quote", res.Position) {
			if s.opts.Fix {
				prefix := ""
				if s.unescapedCount%2 == 1 {
					prefix = "\"\\"
				}
				stateBuf := s.state()
				tail := stateBuf[tokenStart:res.Position]
				s.repairBoth(tokenStart, res.Position-tokenStart, prefix+tail+`"`)
				s.promoteLast()
			}
		}
		return tokenStart + 1 // resume past the opening quote; no clean scalar to validate
	}

	s.validateEscapes(tokenStart, quote)
	s.scanDeficientIndent(tokenStart, indent)
	// Resume past the closing quote so the walker does not re-read the
	// scalar's continuation lines; an unterminated single-quoted scalar
	// resumes past its opening quote instead.
	buf = s.state()
	if end := scalarCloseQuote(buf, tokenStart); end < len(buf) {
		return end + 1
	}
	return tokenStart + 1
}

// scanDeficientIndent implements spec §4.1 item 6 for flow scalars that
// span multiple physical lines: each continuation line indented at or
// below the scalar's own opening indent is under-indented. The base
// parser captures these as "deficient indentation" warnings as it
// scans; since this engine also plays the part of the base parser, it
// reports and (when fixing) immediately pads them once the scalar's
// true end is known.
func (s *session) scanDeficientIndent(tokenStart, tokenIndent int) {
	buf := s.state()
	end := scalarCloseQuote(buf, tokenStart)

	var warnings []deficientIndentWarning
	firstLine := true
	i := tokenStart
	for i < end {
		if buf[i] == '\n' {
			firstLine = false
			ls := i + 1
			have := 0
			for ls+have < end && buf[ls+have] == ' ' {
				have++
			}
			if ls+have < end && have <= tokenIndent {
				if s.report(issue.Warning, "deficient indentation", ls+have) {
					warnings = append(warnings, deficientIndentWarning{
						statePos:    ls + have,
						tokenIndent: tokenIndent,
						firstLine:   firstLine,
					})
				}
			}
		}
		i++
	}
	if s.opts.Fix {
		s.applyDeficientIndentFixes(warnings)
	}
}

func afterLooksLikeTerminator(buf string, quotePos int) bool {
	if quotePos+1 > len(buf) {
		return true
	}
	return oracle.TokensAfterString(buf[quotePos+1:min(quotePos+1+32, len(buf))])
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// validateEscapes scans a "-quoted scalar for invalid escape sequences
// (spec §4.1 item 1, second half). Only double-quoted scalars use
// backslash escapes.
func (s *session) validateEscapes(tokenStart int, quote byte) {
	if quote != '"' {
		return
	}
	buf := s.state()
	end := scalarCloseQuote(buf, tokenStart)
	for i := tokenStart + 1; i < end; i++ {
		if buf[i] != '\\' {
			continue
		}
		if i+1 >= end {
			break
		}
		c := buf[i+1]
		switch {
		case validEscapeChar(c):
			i++
		case c == 'x' && i+3 < end && isHexDigit(buf[i+2]) && isHexDigit(buf[i+3]):
			i += 3
		case c == 'u' && i+5 < end && allHex(buf, i+2, 4):
			i += 5
		case c == 'U' && i+9 < end && allHex(buf, i+2, 8):
			i += 9
		default:
			if s.report(issue.Error, `Invalid escape sequence: "\`+string(c)+`"`, i) {
				if s.opts.Fix {
					s.repairBoth(i, 1, "")
					s.promoteLast()
				}
			}
			i++
		}
		buf = s.state()
	}
}

func allHex(buf string, from, n int) bool {
	for i := 0; i < n; i++ {
		if !isHexDigit(buf[from+i]) {
			return false
		}
	}
	return true
}

// scalarCloseQuote finds the byte offset of the quote that closes the
// scalar opened at tokenStart, skipping backslash escapes in a "-quoted
// scalar and a doubled single quote in a '-quoted one; it returns len(buf) if none
// is found (an unterminated scalar).
func scalarCloseQuote(buf string, tokenStart int) int {
	quote := buf[tokenStart]
	i := tokenStart + 1
	for i < len(buf) {
		if buf[i] == '\\' && quote == '"' {
			i += 2
			continue
		}
		if buf[i] == quote {
			if quote == '\'' && i+1 < len(buf) && buf[i+1] == '\'' {
				i += 2
				continue
			}
			return i
		}
		i++
	}
	return len(buf)
}

// unquotedVariable matches an unquoted {{ var }} template substitution.
var unquotedVariable = regexp.MustCompile(`^\{\{\s*\w+\s*\}\}`)

// detectUnquotedVariable implements spec §4.1 item 2. Returns -1 if it
// did not fire.
func (s *session) detectUnquotedVariable(buf string, tokenStart int) int {
	if tokenStart <= s.threshold("unquotedVariable") {
		return -1
	}
	if tokenStart >= len(buf) || buf[tokenStart] != '{' {
		return -1
	}
	loc := unquotedVariable.FindStringIndex(buf[tokenStart:])
	if loc == nil {
		return -1
	}
	matchEnd := tokenStart + loc[1]
	s.setThreshold("unquotedVariable", matchEnd)

	reason := "Did you mean to substitute a variable? It must be quoted: '…'"
	if s.report(issue.Warning, reason, tokenStart) {
		if s.opts.Fix {
			matched := buf[tokenStart:matchEnd]
			s.repairBoth(tokenStart, len(matched), "'"+matched+"'")
			s.promoteLast()
		}
	}
	return matchEnd
}

// detectLeadingAtSign implements spec §4.1 item 3. Returns -1 if it did
// not fire.
func (s *session) detectLeadingAtSign(tokenStart, indent int) int {
	if tokenStart <= s.threshold("atSign") {
		return -1
	}
	buf := s.state()
	if tokenStart >= len(buf) || buf[tokenStart] != '@' {
		return -1
	}
	// Report before wrapping so the mark is taken before the inserted
	// quote shifts tokenStart.
	reported := s.report(issue.Warning, "'@' cannot start any token", tokenStart)
	end := s.wrapAsDoubleQuoted(tokenStart, indent)
	s.setThreshold("atSign", end)

	if reported && s.opts.Fix {
		s.promoteLast()
	}
	return end
}

// bracketLikeString matches a leading [ whose contents look like a
// plain string rather than a flow sequence: no quotes inside, and
// something other than a clean terminator follows the closing ].
var bracketLikeString = regexp.MustCompile(`^\[[^"'\[\]]*\][^\s:,\]}\n#]`)

// detectLeadingBracket implements spec §4.1 item 4. Returns -1 if it
// did not fire.
func (s *session) detectLeadingBracket(tokenStart, indent int) int {
	if tokenStart <= s.threshold("bracket") {
		return -1
	}
	buf := s.state()
	if tokenStart >= len(buf) || buf[tokenStart] != '[' {
		return -1
	}
	rest := buf[tokenStart:lineEnd(buf, tokenStart)]
	if !bracketLikeString.MatchString(rest) {
		return -1
	}

	reported := s.report(issue.Error, "'[' cannot start a string…", tokenStart)
	end := s.wrapAsDoubleQuoted(tokenStart, indent)
	s.setThreshold("bracket", end)

	if reported && s.opts.Fix {
		s.promoteLast()
	}
	return end
}

// wrapAsDoubleQuoted implements the shared repair used by detectors 3
// and 4: escape interior quotes while walking forward with the oracle
// (guessable=false, so only exact matches), then wrap the whole span in
// double quotes.
func (s *session) wrapAsDoubleQuoted(tokenStart, indent int) int {
	pos := tokenStart
	for {
		buf := s.state()
		end := lineEnd(buf, pos)
		res := oracle.Quoted(buf, '"', pos, true, indent)
		if res.Position == -1 || res.Position >= end {
			// No embedded quote found before the token plausibly ends:
			// wrap the whole span up to end-of-line in double quotes.
			// Splice the later position first so the earlier one
			// (tokenStart) is still valid in the same buffer snapshot.
			s.repairBoth(end, 0, `"`)
			s.repairBoth(tokenStart, 0, `"`)
			return end + 2
		}
		s.repairBoth(res.Position, 0, `\`)
		pos = res.Position + 2
	}
}
