package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/eunjujo120/perso-ai-chatbot/internal/output"
	"github.com/eunjujo120/perso-ai-chatbot/internal/validation"
)

type validateOptions struct {
	suite      string
	minPass    float64
	jsonOutput bool
	noIngest   bool
}

func newValidateCmd() *cobra.Command {
	opts := validateOptions{minPass: 1}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Run a question suite against the answer engine",
		Long: `Ask every question in a suite and check where each answer came from.

Without --suite, every stored question is asked as is and must resolve to
itself (or to the entry that shares its normalized form). A suite file has
exact, paraphrase and negative sections:

  exact:
    - question: "perso.ai는 어떤 서비스인가요"
      expected: "Perso.ai는 어떤 서비스인가요?"
  paraphrase:
    - question: "요금 플랜 알려줘"
      expected: "요금제는 어떻게 되나요?"
      outcome: hybrid        # optional
  negative:
    - question: "오늘 날씨 어때?"`,
		Example: `  persoqa validate
  persoqa validate --suite qa-suite.yaml --min-pass 0.9 --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runValidate(ctx, cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.suite, "suite", "s", "", "YAML suite file (default: every corpus question)")
	cmd.Flags().Float64Var(&opts.minPass, "min-pass", 1, "Minimum pass rate, 0 to 1")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output the report as JSON")
	cmd.Flags().BoolVar(&opts.noIngest, "no-ingest", false, "Skip the ingest check before running")

	return cmd
}

func runValidate(ctx context.Context, cmd *cobra.Command, opts validateOptions) error {
	a, err := newApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	var suite *validation.Suite
	if opts.suite != "" {
		if suite, err = validation.LoadSuite(opts.suite); err != nil {
			return err
		}
	} else {
		entries, err := a.loader.Load(ctx)
		if err != nil {
			return err
		}
		suite = validation.FromCorpus(entries)
	}

	if !opts.noIngest {
		a.warm(ctx)
	}

	rep := validation.NewValidator(a.engine).RunAll(ctx, suite)

	if opts.jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			return err
		}
	} else {
		printReport(output.New(cmd.OutOrStdout()), rep)
	}

	if rep.PassRate() < opts.minPass {
		return fmt.Errorf("pass rate %.1f%% is below %.1f%%", rep.PassRate()*100, opts.minPass*100)
	}
	return nil
}

func printReport(out *output.Writer, rep *validation.Report) {
	out.Header("persoqa validate")
	for _, tier := range []validation.Tier{validation.TierExact, validation.TierParaphrase, validation.TierNegative} {
		if sum, ok := rep.Tiers[tier]; ok {
			out.KeyValue(string(tier), fmt.Sprintf("%d/%d", sum.Passed, sum.Total))
		}
	}
	out.Newline()

	for _, res := range rep.Failed() {
		detail := fmt.Sprintf("got %s", res.Outcome)
		if res.Matched != "" {
			detail += fmt.Sprintf(" from %q", res.Matched)
		}
		if res.Error != "" {
			detail = res.Error
		}
		out.Errorf("%s %q: %s", res.Case.ID, res.Case.Question, detail)
	}

	if rep.Passed == rep.Total {
		out.Successf("%d/%d passed", rep.Passed, rep.Total)
	} else {
		out.Warningf("%d/%d passed (%.1f%%)", rep.Passed, rep.Total, rep.PassRate()*100)
	}
}
