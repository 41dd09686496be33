// Package cmd provides the CLI commands for persoqa.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	qaerrors "github.com/eunjujo120/perso-ai-chatbot/internal/errors"
	"github.com/eunjujo120/perso-ai-chatbot/internal/profiling"
	"github.com/eunjujo120/perso-ai-chatbot/pkg/version"
)

// Global flags, bound fresh by every NewRootCmd call.
var (
	debugMode  bool
	projectDir string

	profileOpts profiling.Options
	profile     *profiling.Session
)

// NewRootCmd creates the root command for the persoqa CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "persoqa",
		Short: "Korean Q&A answer engine for the Perso.ai corpus",
		Long: `persoqa answers questions about Perso.ai from a fixed question/answer
corpus. A question is matched exactly after normalization, or by lexical
similarity reranked with vector search. Questions outside the corpus get a
fixed fallback answer instead of a guess.

Run 'persoqa ingest' once to embed the corpus, then 'persoqa serve' for the
HTTP API or 'persoqa chat' to try it in the terminal.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("persoqa version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&projectDir, "dir", ".", "Project directory holding .persoqa.yaml and the corpus")
	cmd.PersistentFlags().StringVar(&profileOpts.CPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&profileOpts.Heap, "profile-mem", "", "Write heap profile to file")
	cmd.PersistentFlags().StringVar(&profileOpts.Trace, "profile-trace", "", "Write execution trace to file")

	cmd.PersistentPreRunE = startProfiling
	cmd.PersistentPostRunE = stopProfiling

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newAskCmd())
	cmd.AddCommand(newChatCmd())
	cmd.AddCommand(newIngestCmd())
	cmd.AddCommand(newMCPCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newValidateCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func startProfiling(_ *cobra.Command, _ []string) error {
	if !profileOpts.Enabled() {
		return nil
	}
	s, err := profiling.Start(profileOpts)
	if err != nil {
		return fmt.Errorf("failed to start profiling: %w", err)
	}
	profile = s
	return nil
}

func stopProfiling(_ *cobra.Command, _ []string) error {
	if profile == nil {
		return nil
	}
	err := profile.Stop()
	profile = nil
	if err != nil {
		slog.Warn("profile_write_failed", slog.String("error", err.Error()))
		return fmt.Errorf("failed to write profiles: %w", err)
	}
	return nil
}

// Execute runs the root command and prints any error with its code.
func Execute() error {
	root := NewRootCmd()
	err := root.Execute()
	if err != nil {
		_, _ = fmt.Fprint(root.ErrOrStderr(), qaerrors.FormatForCLI(err))
	}
	return err
}
