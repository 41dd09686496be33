// Package ui renders answers and the interactive chat in the terminal.
package ui

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// IsTTY reports whether w is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// DetectNoColor reports whether NO_COLOR is set.
func DetectNoColor() bool {
	_, ok := os.LookupEnv("NO_COLOR")
	return ok
}

// DetectCI reports whether a CI environment variable is set.
func DetectCI() bool {
	for _, v := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "TRAVIS"} {
		if _, ok := os.LookupEnv(v); ok {
			return true
		}
	}
	return false
}

// Interactive reports whether the chat TUI can run on in and out.
func Interactive(in io.Reader, out io.Writer) bool {
	inFile, ok := in.(*os.File)
	if !ok || !isatty.IsTerminal(inFile.Fd()) {
		return false
	}
	return IsTTY(out) && !DetectCI()
}
