package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eunjujo120/perso-ai-chatbot/pkg/version"
)

func newVersionCmd() *cobra.Command {
	var (
		jsonOutput  bool
		shortOutput bool
	)

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the persoqa build",
		Long: `Print the persoqa version with the git commit, build date, Go toolchain
and platform. The same version is sent as the User-Agent to Ollama and
Qdrant, so it is the value to quote in bug reports.`,
		Example: `  persoqa version
  persoqa version --short   # e.g. in scripts: [ "$(persoqa version --short)" = v0.3.0 ]`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if shortOutput {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), version.Short())
				return err
			}
			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(version.GetInfo())
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.String())
			return err
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print build info as JSON")
	cmd.Flags().BoolVar(&shortOutput, "short", false, "Print only the version")

	return cmd
}
