// Package frontmatter implements the FrontMatterSplitter (spec §4.3):
// separating a Markdown document's leading YAML block from its body,
// and rejoining the two after the YAML has been fixed.
package frontmatter

import "regexp"

var (
	dividerLine  = regexp.MustCompile(`(?m)^---\s*$`)
	looksYAMLish = regexp.MustCompile(`^(---\n)?(\s*(#.*)?\n)*\s*[^#\s:]+:`)
)

// Split finds and extracts front-matter per spec §4.3:
//
//  1. Find the first line matching ^---\s*$. None found -> no front-matter.
//  2. If that match is at offset 0, find the next ^---\s*$ line; the
//     front-matter is everything up to (not including) the closer. No
//     closer -> the whole file is front-matter.
//  3. Otherwise the opening --- is optional: only treat the region
//     before the first divider as front-matter if it passes a fuzzy
//     YAML-ish test.
//
// Returns (meta, body). meta is "" when there is no front-matter, in
// which case body == text.
func Split(text string) (meta, body string) {
	loc := dividerLine.FindStringIndex(text)
	if loc == nil {
		return "", text
	}

	if loc[0] == 0 {
		// Skip the newline right after the opening divider, if any.
		bodyStart := loc[1]
		if bodyStart < len(text) && text[bodyStart] == '\n' {
			bodyStart++
		}
		closerLoc := dividerLine.FindStringIndex(text[bodyStart:])
		if closerLoc == nil {
			return text, ""
		}
		closerStart := bodyStart + closerLoc[0]
		closerEnd := bodyStart + closerLoc[1]
		meta = text[:closerStart]
		body = text[closerEnd:]
		if len(body) > 0 && body[0] == '\n' {
			body = body[1:]
		}
		return meta, body
	}

	candidate := text[:loc[0]]
	if !looksYAMLish.MatchString(candidate) {
		return "", text
	}
	meta = candidate
	bodyStart := loc[1]
	if bodyStart < len(text) && text[bodyStart] == '\n' {
		bodyStart++
	}
	body = text[bodyStart:]
	return meta, body
}

// Join reverses Split: if meta is empty, returns markdown unchanged;
// otherwise ensures meta begins with "---\n" and reassembles the
// document with a closing divider.
func Join(meta, markdown string) string {
	if meta == "" {
		return markdown
	}
	if len(meta) < 4 || meta[:4] != "---\n" {
		meta = "---\n" + meta
	}
	return meta + "---\n" + markdown
}
