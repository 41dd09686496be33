package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/eunjujo120/perso-ai-chatbot/internal/ui"
)

func newChatCmd() *cobra.Command {
	var (
		noColor  bool
		noIngest bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the answer engine in the terminal",
		Long: `Open an interactive chat. Type a question and press Enter; type /quit
or press Esc to leave.

When stdin or stdout is not a terminal, questions are read one per line and
answers are printed as plain text, so the command can be scripted:

  printf '요금제 알려줘\n' | persoqa chat`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, appOptions{})
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if !noIngest {
				a.warm(ctx)
			}

			in, out := cmd.InOrStdin(), cmd.OutOrStdout()
			if !ui.Interactive(in, out) {
				return ui.PlainChat(ctx, a.engine, in, out)
			}
			return ui.RunChat(ctx, a.engine, ui.ChatOptions{
				Input:   in,
				Output:  out,
				NoColor: noColor,
			})
		},
	}

	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colors")
	cmd.Flags().BoolVar(&noIngest, "no-ingest", false, "Skip the ingest check before chatting")

	return cmd
}
