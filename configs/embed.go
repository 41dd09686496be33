// Package configs embeds the commented configuration templates written by
// `persoqa config init`.
package configs

import _ "embed"

// ProjectConfigTemplate is written to .persoqa.yaml in the project directory.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string

// UserConfigTemplate is written to ~/.config/persoqa/config.yaml.
//
//go:embed user-config.example.yaml
var UserConfigTemplate string
