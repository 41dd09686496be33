package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/eunjujo120/perso-ai-chatbot/internal/config"
	"github.com/eunjujo120/perso-ai-chatbot/internal/embed"
	"github.com/eunjujo120/perso-ai-chatbot/internal/output"
	"github.com/eunjujo120/perso-ai-chatbot/internal/preflight"
	"github.com/eunjujo120/perso-ai-chatbot/internal/store"
)

func newDoctorCmd() *cobra.Command {
	var (
		verbose    bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, corpus and upstream services",
		Long: `Run diagnostics to make sure persoqa can answer questions:

  - configuration is valid (API keys, thresholds, backend)
  - data directory is writable and has free space
  - corpus loads and has no normalized-question collisions
  - embedding provider responds
  - vector store is reachable and holds one vector per corpus entry
  - last ingest matches the current corpus and model

Warnings do not fail the command. A passing run lets 'serve' skip its own
startup checks until the next failing run.`,
		Example: `  persoqa doctor
  persoqa doctor --verbose
  persoqa doctor --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runDoctor(ctx, cmd, verbose, jsonOutput)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show detailed diagnostic info")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

// doctorReport is the --json output.
type doctorReport struct {
	Status string                  `json:"status"`
	Checks []preflight.CheckResult `json:"checks"`
}

// doctorTarget builds whatever components the configuration allows. Missing
// components show up as failed checks, so errors here are not fatal.
func doctorTarget(ctx context.Context) (preflight.Target, func()) {
	var t preflight.Target
	cleanup := func() {}

	dir, err := filepath.Abs(projectDir)
	if err != nil {
		return t, cleanup
	}
	cfg, err := config.Resolve(dir)
	if err != nil {
		return t, cleanup
	}
	t.Config = cfg

	_, logCleanup, err := setupLogging(cfg.Logging, false)
	if err == nil {
		cleanup = logCleanup
	}
	if cfg.Validate() != nil {
		return t, cleanup
	}

	tok := newTokenizer(cfg.Tokenizer)
	if l, err := newLoader(cfg.Corpus); err == nil {
		t.Loader = l
	}

	var closers []func() error
	if e, err := embed.New(ctx, cfg, tok); err == nil {
		t.Embedder = e
		closers = append(closers, e.Close)
	}
	if s, err := store.New(cfg); err == nil {
		t.Store = s
		closers = append(closers, s.Close)
	}

	prev := cleanup
	return t, func() {
		for _, c := range closers {
			_ = c()
		}
		prev()
	}
}

func runDoctor(ctx context.Context, cmd *cobra.Command, verbose, jsonOutput bool) error {
	target, cleanup := doctorTarget(ctx)
	defer cleanup()

	checker := preflight.New(preflight.WithVerbose(verbose), preflight.WithOutput(cmd.OutOrStdout()))
	results := checker.RunAll(ctx, target)
	failed := checker.HasCriticalFailures(results)

	var lastPass time.Duration
	if target.Config != nil {
		dataDir := target.Config.DataDir()
		lastPass = preflight.MarkerAge(dataDir)
		if failed {
			_ = preflight.ClearMarker(dataDir)
		} else if err := preflight.MarkPassed(dataDir); err != nil {
			cmd.PrintErrf("could not record passing check: %v\n", err)
		}
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(doctorReport{Status: checker.SummaryStatus(results), Checks: results}); err != nil {
			return err
		}
	} else {
		out := output.New(cmd.OutOrStdout())
		printDoctor(out, results, verbose, checker.SummaryStatus(results))
		if lastPass > 0 {
			out.Newline()
			out.Print("Previous passing check: " + formatAge(lastPass))
		}
	}

	if failed {
		return fmt.Errorf("system check failed")
	}
	return nil
}

func printDoctor(out *output.Writer, results []preflight.CheckResult, verbose bool, summary string) {
	out.Header("persoqa doctor")
	out.Newline()
	for _, r := range results {
		out.Check(r.Status.String(), r.Name, r.Message)
		if verbose && r.Details != "" {
			out.Print("      " + r.Details)
		}
	}
	out.Newline()

	switch summary {
	case "ready":
		out.Success("Ready")
	case "ready_with_warnings":
		out.Warning("Ready with warnings")
	default:
		out.Error("Not ready")
	}
	if !verbose {
		for _, r := range results {
			if r.Status != preflight.StatusPass && r.Details != "" {
				out.Statusf("  -", "%s: %s", r.Name, r.Details)
			}
		}
	}
}

// formatAge renders a duration for "last check" style messages.
func formatAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
