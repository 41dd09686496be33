// Package main provides the entry point for the persoqa CLI.
package main

import (
	"os"

	"github.com/eunjujo120/perso-ai-chatbot/cmd/persoqa/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
