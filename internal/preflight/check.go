package preflight

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/eunjujo120/perso-ai-chatbot/internal/config"
	"github.com/eunjujo120/perso-ai-chatbot/internal/corpus"
	"github.com/eunjujo120/perso-ai-chatbot/internal/embed"
	"github.com/eunjujo120/perso-ai-chatbot/internal/store"
)

// CheckStatus is the result of a single check.
type CheckStatus int

const (
	StatusPass CheckStatus = iota
	StatusWarn
	StatusFail
)

func (s CheckStatus) String() string {
	switch s {
	case StatusPass:
		return "PASS"
	case StatusWarn:
		return "WARN"
	case StatusFail:
		return "FAIL"
	default:
		return "UNKNOWN"
	}
}

// MarshalText renders the status name in JSON output.
func (s CheckStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CheckResult holds the result of one check.
type CheckResult struct {
	Name     string      `json:"name"`
	Status   CheckStatus `json:"status"`
	Message  string      `json:"message"`
	Details  string      `json:"details,omitempty"`
	Required bool        `json:"required"`
}

// IsCritical reports a required check that failed.
func (r CheckResult) IsCritical() bool {
	return r.Required && r.Status == StatusFail
}

// Target is what RunAll inspects. Nil components are reported as failed
// rather than skipped.
type Target struct {
	Config   *config.Config
	Loader   corpus.Loader
	Embedder embed.Embedder
	Store    store.VectorStore
}

// Checker runs preflight checks.
type Checker struct {
	verbose bool
	output  io.Writer
}

// Option configures a Checker.
type Option func(*Checker)

// WithVerbose prints check details.
func WithVerbose(verbose bool) Option {
	return func(c *Checker) { c.verbose = verbose }
}

// WithOutput sets the output writer.
func WithOutput(w io.Writer) Option {
	return func(c *Checker) { c.output = w }
}

// New creates a Checker.
func New(opts ...Option) *Checker {
	c := &Checker{output: os.Stdout}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RunAll runs every check in order. The corpus entry count from the corpus
// check feeds the vector store check.
func (c *Checker) RunAll(ctx context.Context, t Target) []CheckResult {
	results := []CheckResult{c.CheckConfig(t.Config)}
	if t.Config == nil {
		return results
	}

	dataDir := t.Config.DataDir()
	results = append(results,
		c.CheckWritePermissions(dataDir),
		c.CheckDiskSpace(dataDir),
	)

	corpusResult, entries := c.CheckCorpus(ctx, t.Loader)
	results = append(results,
		corpusResult,
		c.CheckEmbedder(ctx, t.Embedder),
		c.CheckVectorStore(ctx, t.Store, len(entries)),
		c.CheckIngest(dataDir, entries, t.Embedder),
	)
	return results
}

// HasCriticalFailures reports whether any required check failed.
func (c *Checker) HasCriticalFailures(results []CheckResult) bool {
	for _, r := range results {
		if r.IsCritical() {
			return true
		}
	}
	return false
}

// SummaryStatus returns ready, ready_with_warnings or failed.
func (c *Checker) SummaryStatus(results []CheckResult) string {
	warn := false
	for _, r := range results {
		if r.IsCritical() {
			return "failed"
		}
		if r.Status != StatusPass {
			warn = true
		}
	}
	if warn {
		return "ready_with_warnings"
	}
	return "ready"
}

// PrintResults writes a plain report to the configured output.
func (c *Checker) PrintResults(results []CheckResult) {
	w := c.output
	_, _ = fmt.Fprintln(w, "persoqa doctor")
	_, _ = fmt.Fprintln(w, "==============")
	_, _ = fmt.Fprintln(w)

	for _, r := range results {
		_, _ = fmt.Fprintf(w, "[%s] %s: %s\n", r.Status, r.Name, r.Message)
		if c.verbose && r.Details != "" {
			_, _ = fmt.Fprintf(w, "      %s\n", r.Details)
		}
	}

	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintf(w, "Status: %s\n", strings.ToUpper(c.SummaryStatus(results)))

	for _, r := range results {
		if r.Status != StatusPass && r.Details != "" && !c.verbose {
			_, _ = fmt.Fprintf(w, "  - %s: %s\n", r.Name, r.Details)
		}
	}
}
