package engine

import "strings"

// findNextNonSpace returns the offset of the first character at or
// after pos that is not a plain space or tab, stopping at buf's end.
// This mirrors the nextTokenStart computation spec §4.1 runs on every
// `open` event.
func findNextNonSpace(buf string, pos int) int {
	for pos < len(buf) && (buf[pos] == ' ' || buf[pos] == '\t') {
		pos++
	}
	return pos
}

// lineStart returns the offset of the first character of the line
// containing pos.
func lineStart(buf string, pos int) int {
	if pos > len(buf) {
		pos = len(buf)
	}
	i := strings.LastIndexByte(buf[:pos], '\n')
	return i + 1
}

// lineEnd returns the offset just past the end of the line containing
// pos (i.e. the index of the '\n', or len(buf) at EOF).
func lineEnd(buf string, pos int) int {
	i := strings.IndexByte(buf[pos:], '\n')
	if i < 0 {
		return len(buf)
	}
	return pos + i
}

// indentOf returns the number of leading spaces on the line containing
// pos (tabs count as a single column, same as the teacher's
// indentation tokenizer).
func indentOf(buf string, pos int) int {
	ls := lineStart(buf, pos)
	n := 0
	for ls+n < len(buf) && (buf[ls+n] == ' ' || buf[ls+n] == '\t') {
		n++
	}
	return n
}

func isHexDigit(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

// validEscapeChar reports whether c is a valid single-character escape
// in a double-quoted scalar (spec §4.1 item 1, the "simple escapes"
// glossary entry): 0 a b t \t n v f r e (space) " / \ N _ L P.
func validEscapeChar(c byte) bool {
	switch c {
	case '0', 'a', 'b', 't', '\t', 'n', 'v', 'f', 'r', 'e', ' ', '"', '/', '\\', 'N', '_', 'L', 'P':
		return true
	}
	return false
}
