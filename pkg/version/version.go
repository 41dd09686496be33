// Package version reports which persoqa build is running. The values are
// stamped by the release build; a plain `go build` reports "dev".
package version

import (
	"fmt"
	"runtime"
)

// Name is the program name used in version strings and User-Agent headers.
const Name = "persoqa"

// Stamped with
//
//	go build -ldflags "-X github.com/eunjujo120/perso-ai-chatbot/pkg/version.Version=v0.3.0 ..."
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// GoVersion is the toolchain that built the binary.
var GoVersion = runtime.Version()

// BuildInfo is the `persoqa version --json` document.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// String is the one-line `persoqa version` output.
func String() string {
	return fmt.Sprintf("%s %s (commit: %s, built: %s, %s %s/%s)",
		Name, Version, Commit, Date, GoVersion, runtime.GOOS, runtime.GOARCH)
}

// Short returns Version alone.
func Short() string {
	return Version
}

// UserAgent identifies persoqa to the embedding and vector store servers.
func UserAgent() string {
	return Name + "/" + Version
}

func GetInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}
