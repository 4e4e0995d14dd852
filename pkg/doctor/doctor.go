// Package doctor is the library API described in spec §6: check YAML (or
// the YAML front-matter of a Markdown file) and optionally repair it.
package doctor

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/shapestone/yaml-doctor/internal/engine"
	"github.com/shapestone/yaml-doctor/internal/frontmatter"
	"github.com/shapestone/yaml-doctor/internal/issue"
)

// Issue re-exports internal/issue.Issue so callers never need to import
// an internal package.
type Issue = issue.Issue

// Level re-exports internal/issue.Level.
type Level = issue.Level

const (
	Error   = issue.Error
	Warning = issue.Warning
	Fixed   = issue.Fixed
)

// InternalError re-exports engine.InternalError.
type InternalError = engine.InternalError

// Options configures Check and CheckFile. The zero value matches the
// documented default: no fixing, non-printable characters would be
// removed if fixing were enabled, no debug trace.
type Options struct {
	Fix bool
	// RemoveInvalidCharacters defaults to true (spec §4.1); set it
	// explicitly to false to keep non-printable characters in the fixed
	// buffer even while fixing everything else.
	RemoveInvalidCharacters *bool
	Debug                   bool
	DebugWriter             io.Writer
	Filename                string
	// Write controls whether CheckFile overwrites path with the fixed
	// content when Fix is true. Defaults to true; set explicitly to
	// false to fix in memory without touching disk.
	Write *bool
}

func boolOrDefault(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}

func (o Options) toEngine() engine.Options {
	return engine.Options{
		Fix:                     o.Fix,
		RemoveInvalidCharacters: boolOrDefault(o.RemoveInvalidCharacters, true),
		Debug:                   o.Debug,
		DebugWriter:             o.DebugWriter,
		Filename:                o.Filename,
	}
}

// Result is the outcome of Check or CheckFile.
type Result struct {
	Issues []Issue
	Fixed  *string
}

// Check runs the listener over text. It never returns an error for YAML
// syntax faults — those become Result.Issues — only for an internal
// engine fault (*InternalError).
func Check(text string, opts Options) (Result, error) {
	r, err := engine.Check(text, opts.toEngine())
	if err != nil {
		return Result{}, err
	}
	return Result{Issues: r.Issues, Fixed: r.Fixed}, nil
}

func writeRequested(opts Options) bool {
	return boolOrDefault(opts.Write, true)
}

// CheckFile reads path (unless content is non-nil, in which case that is
// used instead of reading the file) and checks it. Markdown files (.md)
// are split on front-matter first; only the front-matter region is
// checked, and the body is copied through unchanged. When opts.Fix is
// true and the effective Write option is true, the file is overwritten
// with the fixed content (the rejoined document, for Markdown).
func CheckFile(path string, content *string, opts Options) (Result, error) {
	var text string
	if content != nil {
		text = *content
	} else {
		b, err := os.ReadFile(path)
		if err != nil {
			return Result{}, err
		}
		text = string(b)
	}
	if opts.Filename == "" {
		opts.Filename = path
	}

	isMarkdown := strings.EqualFold(filepath.Ext(path), ".md")
	if !isMarkdown {
		res, err := Check(text, opts)
		if err != nil {
			return Result{}, err
		}
		if res.Fixed != nil && writeRequested(opts) {
			if err := os.WriteFile(path, []byte(*res.Fixed), 0o644); err != nil {
				return Result{}, err
			}
		}
		return res, nil
	}

	meta, body := frontmatter.Split(text)
	if meta == "" {
		return Result{}, nil
	}
	res, err := Check(meta, opts)
	if err != nil {
		return Result{}, err
	}
	if res.Fixed != nil && writeRequested(opts) {
		joined := frontmatter.Join(*res.Fixed, body)
		if err := os.WriteFile(path, []byte(joined), 0o644); err != nil {
			return Result{}, err
		}
	}
	return res, nil
}

// IsNotExist reports whether err is the kind of file-read failure spec
// §6 asks the CLI to collect into an "unreadable" batch section rather
// than treat as fatal: ENOENT or EPERM.
func IsNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist) || errors.Is(err, os.ErrPermission)
}
