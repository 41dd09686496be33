package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/eunjujo120/perso-ai-chatbot/internal/qa"
	"github.com/eunjujo120/perso-ai-chatbot/internal/telemetry"
	"github.com/eunjujo120/perso-ai-chatbot/pkg/version"
)

// ServerName is reported to MCP clients.
const ServerName = "persoqa"

// MetricsURI is the resource URI of the answer metrics snapshot.
const MetricsURI = "persoqa://answer_metrics"

// Answerer resolves a question.
type Answerer interface {
	Answer(ctx context.Context, question string) (qa.Response, error)
}

// StatusProvider reports the state of the corpus indexes.
type StatusProvider interface {
	CorpusStatus(ctx context.Context) (CorpusStatus, error)
}

// MetricsSource provides telemetry snapshots.
type MetricsSource interface {
	Snapshot() *telemetry.Snapshot
}

// ToolInfo describes a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

var tools = []ToolInfo{
	{
		Name:        "ask",
		Description: "Answer a question about Perso.ai from the curated Q&A corpus. Returns the stored answer and the matched question, or a fallback message when the corpus has no answer.",
	},
	{
		Name:        "corpus_status",
		Description: "Report how many Q&A entries are loaded, which embedding model and vector backend are active, and when the corpus was last ingested.",
	},
}

// Server bridges MCP clients to the answer engine.
type Server struct {
	mcp      *mcp.Server
	answerer Answerer
	status   StatusProvider
	metrics  MetricsSource
	logger   *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithStatus enables the corpus_status tool.
func WithStatus(p StatusProvider) Option {
	return func(s *Server) { s.status = p }
}

// WithMetrics registers the answer metrics resource.
func WithMetrics(m MetricsSource) Option {
	return func(s *Server) { s.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates an MCP server with the ask and corpus_status tools.
func NewServer(answerer Answerer, opts ...Option) (*Server, error) {
	if answerer == nil {
		return nil, errors.New("answerer is required")
	}
	s := &Server{answerer: answerer, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}

	s.mcp = mcp.NewServer(&mcp.Implementation{Name: ServerName, Version: version.Version}, nil)
	s.registerTools()
	if s.metrics != nil {
		s.registerMetricsResource()
	}
	return s, nil
}

// MCPServer returns the underlying SDK server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// ListTools returns the registered tools.
func (s *Server) ListTools() []ToolInfo {
	return append([]ToolInfo(nil), tools...)
}

// CallTool invokes a tool by name, returning the markdown rendering.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	switch name {
	case "ask":
		q, _ := args["question"].(string)
		_, out, err := s.ask(ctx, q)
		if err != nil {
			return "", err
		}
		return out, nil
	case "corpus_status":
		st, err := s.corpusStatus(ctx)
		if err != nil {
			return "", err
		}
		return FormatStatus(st), nil
	default:
		return "", NewMethodNotFoundError(name)
	}
}

func (s *Server) ask(ctx context.Context, question string) (qa.Response, string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return qa.Response{}, "", NewInvalidParamsError("question parameter is required and must be a non-empty string")
	}

	requestID := generateRequestID()
	start := time.Now()
	resp, err := s.answerer.Answer(ctx, question)
	if err != nil {
		s.logger.Error("mcp_ask_failed",
			slog.String("request_id", requestID),
			slog.Duration("duration", time.Since(start)),
			slog.String("error", err.Error()))
		return qa.Response{}, "", MapError(err)
	}
	s.logger.Info("mcp_ask",
		slog.String("request_id", requestID),
		slog.String("outcome", string(resp.Outcome)),
		slog.Duration("duration", time.Since(start)))
	return resp, FormatAnswer(question, resp), nil
}

func (s *Server) corpusStatus(ctx context.Context) (CorpusStatus, error) {
	if s.status == nil {
		return CorpusStatus{}, &MCPError{Code: ErrCodeCorpusUnavailable, Message: "corpus status is not available"}
	}
	st, err := s.status.CorpusStatus(ctx)
	if err != nil {
		return CorpusStatus{}, MapError(err)
	}
	return st, nil
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[0].Name, Description: tools[0].Description}, s.mcpAskHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[1].Name, Description: tools[1].Description}, s.mcpStatusHandler)
	s.logger.Debug("mcp_tools_registered", slog.Int("count", len(tools)))
}

func (s *Server) mcpAskHandler(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (
	*mcp.CallToolResult,
	AskOutput,
	error,
) {
	resp, text, err := s.ask(ctx, input.Question)
	if err != nil {
		return nil, AskOutput{}, err
	}
	out := AskOutput{
		Answer:          resp.Answer,
		MatchedQuestion: resp.MatchedQuestion,
		Score:           resp.Score,
		Outcome:         string(resp.Outcome),
		Answered:        resp.Outcome.Answered(),
	}
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}, out, nil
}

func (s *Server) mcpStatusHandler(ctx context.Context, _ *mcp.CallToolRequest, _ CorpusStatusInput) (
	*mcp.CallToolResult,
	CorpusStatus,
	error,
) {
	st, err := s.corpusStatus(ctx)
	if err != nil {
		return nil, CorpusStatus{}, err
	}
	return nil, st, nil
}

func (s *Server) registerMetricsResource() {
	s.mcp.AddResource(&mcp.Resource{
		Name:        "answer_metrics",
		URI:         MetricsURI,
		Description: "Answer outcome counts, latency distribution and recent unanswered questions",
		MIMEType:    "application/json",
	}, s.readMetrics)
}

func (s *Server) readMetrics(_ context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	content, err := json.MarshalIndent(s.metrics.Snapshot(), "", "  ")
	if err != nil {
		return nil, MapError(err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      MetricsURI,
			MIMEType: "application/json",
			Text:     string(content),
		}},
	}, nil
}

// Serve runs the server over the named transport until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("mcp_server_starting", slog.String("transport", transport))
	switch transport {
	case "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("mcp_server_stopped", slog.String("error", err.Error()))
			return err
		}
		s.logger.Info("mcp_server_stopped")
		return nil
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}

func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
