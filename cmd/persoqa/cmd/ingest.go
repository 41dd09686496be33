package cmd

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/eunjujo120/perso-ai-chatbot/internal/output"
)

func newIngestCmd() *cobra.Command {
	var (
		force      bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Embed the corpus into the vector store",
		Long: `Load the corpus, embed every stored question and rebuild the vector
store collection. The run is skipped when the store already matches the
corpus fingerprint and embedding model; --force rebuilds anyway.

A failed run leaves the previous index in place.`,
		Example: `  persoqa ingest
  persoqa ingest --force`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runIngest(ctx, cmd, force, jsonOutput)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Rebuild even when the index is current")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the result as JSON")

	return cmd
}

func runIngest(ctx context.Context, cmd *cobra.Command, force, jsonOutput bool) error {
	out := output.New(cmd.OutOrStdout())

	opts := appOptions{}
	if !jsonOutput {
		opts.progress = func(done, total int) {
			out.Progress(done, total, "embedding questions")
		}
	}

	a, err := newApp(ctx, opts)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	res, err := a.reloader.Reload(ctx, force)
	if err != nil {
		if !jsonOutput {
			out.Error("ingest failed; the previous index is unchanged")
		}
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	if res.Skipped {
		out.Successf("Index is current (%d entries)", res.Entries)
		return nil
	}
	out.Successf("Indexed %d entries in %s", res.Entries, res.Duration.Round(time.Millisecond))
	out.KeyValue("corpus", a.cfg.Corpus.Path)
	out.KeyValue("backend", a.cfg.Vector.Backend)
	out.KeyValue("model", a.embedder.ModelName())
	out.KeyValue("dimensions", strconv.Itoa(res.Dimensions))
	if res.Collisions > 0 {
		out.Warningf("%d questions share a normalized form; the later entry wins", res.Collisions)
	}
	return nil
}
