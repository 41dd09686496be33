package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	qaerrors "github.com/eunjujo120/perso-ai-chatbot/internal/errors"
	"github.com/eunjujo120/perso-ai-chatbot/internal/output"
	"github.com/eunjujo120/perso-ai-chatbot/internal/ui"
)

type askOptions struct {
	jsonOutput bool
	noIngest   bool
}

func newAskCmd() *cobra.Command {
	var opts askOptions

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer one question",
		Long: `Answer a single question from the corpus and print the answer with the
matched question, score and decision outcome.

Exit status is 0 for fallback answers too; use --json and the "outcome"
field to tell them apart.`,
		Example: `  persoqa ask "Perso.ai는 어떤 서비스인가요?"
  persoqa ask "요금제는 어떻게 되나요" --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")
			return runAsk(cmd.Context(), cmd, question, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&opts.noIngest, "no-ingest", false, "Skip the ingest check before answering")

	return cmd
}

func runAsk(ctx context.Context, cmd *cobra.Command, question string, opts askOptions) error {
	if strings.TrimSpace(question) == "" {
		return qaerrors.ValidationError("question must not be empty", nil)
	}

	a, err := newApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if !opts.noIngest {
		a.warm(ctx)
	}

	resp, err := a.engine.Answer(ctx, question)
	if opts.jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err != nil {
			data, ferr := qaerrors.FormatJSON(err)
			if ferr == nil {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			}
			return err
		}
		return enc.Encode(resp)
	}
	if err != nil {
		return err
	}

	out := output.New(cmd.OutOrStdout())
	out.Print(ui.RenderResponse(out.Styles(), resp))
	return nil
}
