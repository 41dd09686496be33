package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/eunjujo120/perso-ai-chatbot/internal/mcp"
)

func newMCPCmd() *cobra.Command {
	var noIngest bool

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the answer engine as an MCP server over stdio",
		Long: `Run a Model Context Protocol server on stdin/stdout with two tools:

  ask            answer a question from the corpus
  corpus_status  report corpus, exact index and vector store state

and the persoqa://answer_metrics resource. Logs go to the log file only,
since stdout carries the protocol.`,
		Example: `  # Claude Desktop / Cursor config
  {"command": "persoqa", "args": ["mcp", "--dir", "/path/to/project"]}`,
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

			srv, err := mcp.NewServer(a.engine,
				mcp.WithStatus(a),
				mcp.WithMetrics(a.metrics),
				mcp.WithLogger(a.logger),
			)
			if err != nil {
				return err
			}
			return srv.Serve(ctx, "stdio")
		},
	}

	cmd.Flags().BoolVar(&noIngest, "no-ingest", false, "Skip the ingest check before serving")

	return cmd
}
