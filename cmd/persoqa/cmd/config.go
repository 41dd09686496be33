package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/eunjujo120/perso-ai-chatbot/configs"
	"github.com/eunjujo120/perso-ai-chatbot/internal/config"
	"github.com/eunjujo120/perso-ai-chatbot/internal/output"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or create configuration",
		Long: `Configuration is layered, later sources winning:

  1. Built-in defaults
  2. User config (~/.config/persoqa/config.yaml)
  3. Project config (.persoqa.yaml in --dir)
  4. Environment (PERSOQA_*, GEMINI_API_KEY, QDRANT_URL, ...), including .env in --dir`,
	}

	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration with secrets masked",
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := filepath.Abs(projectDir)
			if err != nil {
				return err
			}
			cfg, err := config.Resolve(dir)
			if err != nil {
				return err
			}
			red := cfg.Redacted()

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(red); err != nil {
					return err
				}
			} else {
				data, err := yaml.Marshal(red)
				if err != nil {
					return fmt.Errorf("failed to marshal config: %w", err)
				}
				_, _ = cmd.OutOrStdout().Write(data)
			}

			if err := cfg.Validate(); err != nil {
				output.New(cmd.ErrOrStderr()).Warningf("configuration is not valid: %v", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var (
		force     bool
		user      bool
		effective bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default settings",
		Long: `Write the default configuration to .persoqa.yaml in --dir, or to the
user config file with --user. An existing file is kept unless --force is
given, in which case it is backed up first.

--effective writes every resolved setting, including values taken from the
environment, so a working setup can be frozen into a file.`,
		Example: `  persoqa config init
  persoqa config init --user --force`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := filepath.Join(projectDir, config.ProjectConfigName)
			template := configs.ProjectConfigTemplate
			if user {
				path = config.GetUserConfigPath()
				template = configs.UserConfigTemplate
			}
			write := func() error {
				if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
					return fmt.Errorf("failed to create config directory: %w", err)
				}
				return os.WriteFile(path, []byte(template), 0o600)
			}
			if effective {
				write = func() error {
					cfg, err := config.Resolve(projectDir)
					if err != nil {
						return err
					}
					return cfg.WriteYAML(path)
				}
			}
			return runConfigInit(cmd, path, force, write)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	cmd.Flags().BoolVar(&user, "user", false, "Write the user config instead of the project config")
	cmd.Flags().BoolVar(&effective, "effective", false, "Write the current effective settings instead of the commented template")

	return cmd
}

func runConfigInit(cmd *cobra.Command, path string, force bool, write func() error) error {
	out := output.New(cmd.OutOrStdout())

	if _, err := os.Stat(path); err == nil {
		if !force {
			out.Warningf("%s already exists", path)
			out.Print("Use --force to overwrite it (a backup is kept).")
			return nil
		}
		backup, err := config.BackupFile(path)
		if err != nil {
			return err
		}
		if backup != "" {
			out.Statusf("•", "Backed up to %s", backup)
		}
	}

	if err := write(); err != nil {
		return err
	}
	out.Successf("Wrote %s", path)
	out.Print("Set GEMINI_API_KEY (or embeddings.provider) before running 'persoqa ingest'.")
	return nil
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the user and project config file paths",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := output.New(cmd.OutOrStdout())
			out.KeyValue("user", config.GetUserConfigPath())
			out.KeyValue("project", filepath.Join(projectDir, config.ProjectConfigName))
			return nil
		},
	}
}
