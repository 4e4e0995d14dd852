// Package cli implements the yaml-doctor command-line surface described
// in spec §6: path/glob expansion, per-file reporting, a batch summary,
// and the exit-code policy. The core (pkg/doctor) treats all of this as
// an external collaborator; this package is that collaborator.
package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/shapestone/yaml-doctor/internal/issue"
	"github.com/shapestone/yaml-doctor/pkg/doctor"
)

// dirGlob is appended to a directory argument to expand it per spec §6.
const dirGlob = "**/*.{yaml,yml,md}"

// Version is stamped at build time (or left as "dev"); cobra surfaces it
// via --version.
var Version = "dev"

// NewRootCommand builds the yaml-doctor root command. stdout/stderr are
// injected so tests can capture output instead of the process's real
// streams.
func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	var fix, debug bool

	cmd := &cobra.Command{
		Use:           "yaml-doctor [options] <PATH...>",
		Short:         "Check and repair common YAML authoring mistakes",
		Version:       Version,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			code := Run(args, fix, debug, stdout, stderr)
			if code != 0 {
				return &exitError{code: code}
			}
			return nil
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.Flags().BoolVar(&fix, "fix", false, "rewrite fixable issues in place")
	cmd.Flags().BoolVar(&debug, "debug", false, "trace detector activity to stderr")
	return cmd
}

// exitError carries a process exit code through cobra's error return
// without printing an additional message (Run already reported
// everything relevant).
type exitError struct{ code int }

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

// ExitCode extracts the intended process exit code from an error
// returned by a command built with NewRootCommand, defaulting to 1 for
// any other (e.g. usage) error.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if ee, ok := err.(*exitError); ok {
		return ee.code
	}
	return 1
}

// Run checks every expanded path and writes the report to stdout (with
// colorization when stdout is a TTY), returning the process exit code
// per spec §6: 1 if no path matched any file, if any issue is an error,
// or if a file failed for a reason other than ENOENT/EPERM; 0 otherwise.
func Run(paths []string, fix, debug bool, stdout, stderr io.Writer) int {
	files, badPatterns := expandPaths(paths)
	for _, p := range badPatterns {
		fmt.Fprintf(stderr, "yaml-doctor: invalid path or pattern: %s\n", p)
	}
	if len(files) == 0 {
		fmt.Fprintln(stderr, "yaml-doctor: no files matched")
		return 1
	}

	var (
		totalErrors, totalWarnings, totalFixed int
		unreadable                             []string
		hadErrors                              bool
	)

	for _, f := range files {
		opts := doctor.Options{Fix: fix, Debug: debug, DebugWriter: stderr}
		res, err := doctor.CheckFile(f, nil, opts)
		if err != nil {
			if doctor.IsNotExist(err) {
				unreadable = append(unreadable, fmt.Sprintf("%s: %v", f, err))
				continue
			}
			fmt.Fprintf(stderr, "yaml-doctor: %s: %v\n", f, err)
			hadErrors = true
			continue
		}
		if len(res.Issues) == 0 {
			continue
		}
		fmt.Fprintln(stdout, f)
		for _, is := range res.Issues {
			reportLine(stdout, is)
			switch is.Level {
			case issue.Error:
				totalErrors++
				hadErrors = true
			case issue.Warning:
				totalWarnings++
			case issue.Fixed:
				totalFixed++
			}
		}
	}

	if len(unreadable) > 0 {
		fmt.Fprintln(stdout, "unreadable:")
		for _, u := range unreadable {
			fmt.Fprintf(stdout, "  %s\n", u)
		}
	}

	fmt.Fprintf(stdout, "%d errors, %d warnings, %d fixed in %d files\n",
		totalErrors, totalWarnings, totalFixed, len(files))

	if hadErrors {
		return 1
	}
	return 0
}

func reportLine(w io.Writer, is issue.Issue) {
	level := string(is.Level)
	colored := level
	if color.NoColor {
		colored = level
	} else {
		switch is.Level {
		case issue.Error:
			colored = color.RedString(level)
		case issue.Warning:
			colored = color.YellowString(level)
		case issue.Fixed:
			colored = color.CyanString(level)
		}
	}
	fmt.Fprintf(w, "  %d:%d  %s  %s\n", is.Mark.Line, is.Mark.Column, colored, is.Reason)
}

// expandPaths resolves each CLI path argument into a sorted, deduplicated
// list of files to check: a directory expands to dirGlob underneath it; a
// glob pattern expands via doublestar; any other existing path is checked
// literally regardless of extension, per spec §6, and a literal path that
// does not exist matches no file.
func expandPaths(paths []string) (files []string, badPatterns []string) {
	seen := make(map[string]bool)
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err == nil && info.IsDir() {
			matches, globErr := doublestar.Glob(os.DirFS(p), dirGlob)
			if globErr != nil {
				badPatterns = append(badPatterns, p)
				continue
			}
			for _, m := range matches {
				add(filepath.Join(p, m))
			}
			continue
		}
		if doublestar.ValidatePattern(p) && strings.ContainsAny(p, "*?[{") {
			matches, globErr := doublestar.FilepathGlob(p)
			if globErr != nil {
				badPatterns = append(badPatterns, p)
				continue
			}
			for _, m := range matches {
				add(m)
			}
			continue
		}
		if os.IsNotExist(err) {
			continue
		}
		add(p)
	}
	sort.Strings(files)
	return files, badPatterns
}
