package engine

import (
	"strings"
	"testing"

	"github.com/shapestone/yaml-doctor/internal/issue"
)

func reasons(issues []issue.Issue) []string {
	out := make([]string, len(issues))
	for i, is := range issues {
		out[i] = is.Reason
	}
	return out
}

func TestCheck_UnescapedSingleQuote(t *testing.T) {
	// Seed scenario S1.
	in := `some_key: 'it's a bequot'd string'`
	res, err := Check(in, Options{Fix: true})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(res.Issues) == 0 {
		t.Fatalf("want at least one issue, got none")
	}
	first := res.Issues[0]
	if first.Reason != "unescaped quote in quoted string" {
		t.Errorf("first issue reason = %q", first.Reason)
	}
	if first.Level != issue.Fixed {
		t.Errorf("first issue level = %s, want fixed", first.Level)
	}
	if res.Fixed == nil {
		t.Fatal("want a fixed buffer")
	}
	want := `some_key: 'it''s a bequot''d string'`
	if *res.Fixed != want {
		t.Errorf("fixed = %q, want %q", *res.Fixed, want)
	}
}

func TestCheck_QuotedScalarNoEndQuote(t *testing.T) {
	// Seed scenario S3's second error: a double-quoted scalar whose line
	// is followed by a line that looks like a new mapping entry, so the
	// oracle gives up guessing rather than finding a real closing quote.
	in := "key: \"unterminated value\nnext_key: value\n"
	res, err := Check(in, Options{Fix: true})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(res.Issues) != 1 {
		t.Fatalf("want 1 issue, got %d: %v", len(res.Issues), reasons(res.Issues))
	}
	first := res.Issues[0]
	if first.Reason != "quoted string has no end quote" {
		t.Errorf("reason = %q", first.Reason)
	}
	if first.Level != issue.Fixed {
		t.Errorf("level = %s, want fixed", first.Level)
	}
	want := "key: \"unterminated value\"\nnext_key: value\n"
	if res.Fixed == nil || *res.Fixed != want {
		t.Errorf("fixed = %v, want %q", res.Fixed, want)
	}
}

func TestCheck_QuotedScalarNoEndQuote_NoFix(t *testing.T) {
	in := "key: \"unterminated value\nnext_key: value\n"
	res, err := Check(in, Options{Fix: false})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(res.Issues) != 1 || res.Issues[0].Reason != "quoted string has no end quote" {
		t.Fatalf("want 1 no-end-quote issue, got %v", reasons(res.Issues))
	}
	if res.Issues[0].Level != issue.Error {
		t.Errorf("level = %s, want error (unfixed)", res.Issues[0].Level)
	}
	if res.Fixed != nil {
		t.Errorf("want no fixed buffer when Fix is false")
	}
}

func TestCheck_DeficientIndentation(t *testing.T) {
	// Seed scenario S5, simplified to a single continuation line: a
	// quoted scalar's second physical line is indented at or below the
	// block's own indent.
	in := "key: \"line one\nline two\""
	res, err := Check(in, Options{Fix: true})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(res.Issues) != 1 {
		t.Fatalf("want 1 issue, got %d: %v", len(res.Issues), reasons(res.Issues))
	}
	first := res.Issues[0]
	if first.Reason != "deficient indentation" {
		t.Errorf("reason = %q", first.Reason)
	}
	if first.Level != issue.Fixed {
		t.Errorf("level = %s, want fixed", first.Level)
	}
	want := "key: \"line one\n  line two\""
	if res.Fixed == nil || *res.Fixed != want {
		t.Errorf("fixed = %v, want %q", res.Fixed, want)
	}
}

func TestCheck_DeficientIndentation_NoFix(t *testing.T) {
	in := "key: \"line one\nline two\""
	res, err := Check(in, Options{Fix: false})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(res.Issues) != 1 || res.Issues[0].Reason != "deficient indentation" {
		t.Fatalf("want 1 deficient-indentation issue, got %v", reasons(res.Issues))
	}
	if res.Issues[0].Level != issue.Warning {
		t.Errorf("level = %s, want warning (unfixed)", res.Issues[0].Level)
	}
	if res.Fixed != nil {
		t.Errorf("want no fixed buffer when Fix is false")
	}
}

func TestCheck_LeadingAtSign(t *testing.T) {
	// Seed scenario S2.
	in := `some_key: @at sign value`
	res, err := Check(in, Options{Fix: true})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(res.Issues) != 1 {
		t.Fatalf("want 1 issue, got %d: %v", len(res.Issues), reasons(res.Issues))
	}
	if res.Issues[0].Reason != "'@' cannot start any token" {
		t.Errorf("reason = %q", res.Issues[0].Reason)
	}
	if res.Issues[0].Level != issue.Fixed {
		t.Errorf("level = %s, want fixed", res.Issues[0].Level)
	}
	want := `some_key: "@at sign value"`
	if res.Fixed == nil || *res.Fixed != want {
		t.Errorf("fixed = %v, want %q", res.Fixed, want)
	}
}

func TestCheck_NonPrintableCharacters(t *testing.T) {
	// Seed scenario S4.
	in := "has_unprintables: text\b<-backspace char\x06<-acknowledge char"
	res, err := Check(in, Options{Fix: true, RemoveInvalidCharacters: true})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(res.Issues) != 2 {
		t.Fatalf("want 2 issues, got %d: %v", len(res.Issues), reasons(res.Issues))
	}
	for _, is := range res.Issues {
		if is.Level != issue.Fixed {
			t.Errorf("issue %q level = %s, want fixed", is.Reason, is.Level)
		}
	}
	if res.Fixed == nil {
		t.Fatal("want a fixed buffer")
	}
	if strings.ContainsRune(*res.Fixed, '\b') || strings.ContainsRune(*res.Fixed, '\x06') {
		t.Errorf("fixed buffer still contains a non-printable character: %q", *res.Fixed)
	}
}

func TestCheck_NonPrintable_NoFixLeavesStateOnly(t *testing.T) {
	in := "k: v\x06"
	res, err := Check(in, Options{})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(res.Issues) != 1 {
		t.Fatalf("want 1 issue, got %d", len(res.Issues))
	}
	if res.Issues[0].Level != issue.Error {
		t.Errorf("level = %s, want error (no fix requested)", res.Issues[0].Level)
	}
	if res.Fixed != nil {
		t.Error("want no fixed buffer when Fix is false")
	}
}

func TestCheck_UnquotedTemplateVariable(t *testing.T) {
	// Seed scenario S6.
	in := "a_list:\n  - {{ this_is_not_actually_a_variable }}\n  -  \"{{ this_is_a_variable }}\"\n  - an_object: {{ with_not_a_variable }}\n"
	res, err := Check(in, Options{Fix: true})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	var warnings int
	for _, is := range res.Issues {
		if is.Reason == "Did you mean to substitute a variable? It must be quoted: '…'" {
			warnings++
		}
	}
	if warnings != 2 {
		t.Fatalf("want 2 unquoted-variable warnings, got %d: %v", warnings, reasons(res.Issues))
	}
}

func TestCheck_NoFix_FixedIsNil(t *testing.T) {
	in := "some_key: @at sign value"
	res, err := Check(in, Options{})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if res.Fixed != nil {
		t.Error("want nil Fixed when Fix is false")
	}
	for _, is := range res.Issues {
		if is.Level == issue.Fixed {
			t.Errorf("issue %q is Fixed but Fix was not requested", is.Reason)
		}
	}
}

func TestCheck_MarksWithinBounds(t *testing.T) {
	in := "a: 'unterminated\nb: c\n"
	res, err := Check(in, Options{})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	for _, is := range res.Issues {
		if int(is.Mark.Position) < 0 || int(is.Mark.Position) > len(in) {
			t.Errorf("issue %q mark position %d out of bounds [0,%d]", is.Reason, is.Mark.Position, len(in))
		}
	}
}

func TestCheck_InvalidEscapeSequence(t *testing.T) {
	in := `bad: "oops \q escape"`
	res, err := Check(in, Options{Fix: true})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	var found bool
	for _, is := range res.Issues {
		if strings.HasPrefix(is.Reason, "Invalid escape sequence") {
			found = true
			if is.Level != issue.Fixed {
				t.Errorf("level = %s, want fixed", is.Level)
			}
		}
	}
	if !found {
		t.Fatalf("want an invalid-escape-sequence issue, got %v", reasons(res.Issues))
	}
	if res.Fixed == nil || strings.Contains(*res.Fixed, `\q`) {
		t.Errorf("fixed buffer should have dropped the bad backslash: %v", res.Fixed)
	}
}

func TestCheck_AnchorLooksLikeEntity(t *testing.T) {
	in := "value: &amp; something\n"
	res, err := Check(in, Options{Fix: true})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	var found bool
	for _, is := range res.Issues {
		if is.Reason == "anchor name looks like an HTML entity reference, consider quoting it" {
			found = true
			if is.Level == issue.Fixed {
				t.Error("anchor-entity warning must never be auto-fixed")
			}
		}
	}
	if !found {
		t.Fatalf("want an anchor-entity warning, got %v", reasons(res.Issues))
	}
}

func TestCheck_FlowSequenceUntouched(t *testing.T) {
	in := "list: [a, b, c]\n"
	res, err := Check(in, Options{Fix: true})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(res.Issues) != 0 {
		t.Errorf("want no issues for a clean flow sequence, got %v", reasons(res.Issues))
	}
}

func TestCheck_LeadingBracketLooksLikeString(t *testing.T) {
	in := "key: [not, a, seq]trailing\n"
	res, err := Check(in, Options{Fix: true})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	var found bool
	for _, is := range res.Issues {
		if strings.HasPrefix(is.Reason, "'[' cannot start a string") {
			found = true
		}
	}
	if !found {
		t.Fatalf("want the leading-bracket detector to fire, got %v", reasons(res.Issues))
	}
}

func TestCheck_MixedSpacesAndTabsIndentation(t *testing.T) {
	in := "parent:\n \tchild: value\n"
	res, err := Check(in, Options{Fix: true})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	var found bool
	for _, is := range res.Issues {
		if is.Reason == "line is indented with mixed spaces and tabs" {
			found = true
			if is.Level == issue.Fixed {
				t.Errorf("mixed-indentation issue must never be auto-fixed, got level %v", is.Level)
			}
		}
	}
	if !found {
		t.Fatalf("want a mixed-indentation error, got %v", reasons(res.Issues))
	}
}

func TestCheck_MixedIndentationSuppressedOnAtSignLine(t *testing.T) {
	in := "parent:\n \t@at sign value\n"
	res, err := Check(in, Options{Fix: true})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	for _, is := range res.Issues {
		if is.Reason == "line is indented with mixed spaces and tabs" {
			t.Fatalf("mixed-indentation must be suppressed on an '@'-led line, got %v", reasons(res.Issues))
		}
	}
}

func TestCheck_Idempotent(t *testing.T) {
	inputs := []string{
		`some_key: 'it's a bequot'd string'`,
		`some_key: @at sign value`,
		"a_list:\n  - {{ this_is_not_actually_a_variable }}\n",
	}
	for _, in := range inputs {
		first, err := Check(in, Options{Fix: true})
		if err != nil {
			t.Fatalf("Check: %v", err)
		}
		if first.Fixed == nil {
			t.Fatalf("want a fixed buffer for %q", in)
		}
		second, err := Check(*first.Fixed, Options{Fix: true})
		if err != nil {
			t.Fatalf("second Check: %v", err)
		}
		for _, is := range second.Issues {
			if is.Level == issue.Fixed {
				t.Errorf("re-checking the fixed output of %q still reports a fix: %q", in, is.Reason)
			}
		}
	}
}
