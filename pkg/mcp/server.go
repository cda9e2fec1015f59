package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/duynguyendang/gapagent/pkg/ingest"
	"github.com/duynguyendang/gapagent/pkg/service"
	"github.com/duynguyendang/gapagent/pkg/session"
	"github.com/duynguyendang/gapagent/pkg/table"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	uriSession    = "gapagent://session/summary"
	uriGapTable   = "gapagent://tables/gap"
	uriTranscript = "gapagent://history/transcript"
)

// MCPServer exposes the analysis operations of one session as MCP tools.
type MCPServer struct {
	analysis *service.AnalysisService
	session  *session.Session
	apiKey   string
	mu       sync.Mutex
}

// NewMCPServer creates the tool handlers for sess.
func NewMCPServer(analysis *service.AnalysisService, sess *session.Session, apiKey string) *MCPServer {
	return &MCPServer{analysis: analysis, session: sess, apiKey: apiKey}
}

// Run starts the MCP server on Stdio.
func Run(ctx context.Context, ms *MCPServer, version string) error {
	s := ms.Build(version)
	slog.Info("Starting MCP server on Stdio")
	return server.ServeStdio(s)
}

// Build registers resources and tools on a new server.
func (ms *MCPServer) Build(version string) *server.MCPServer {
	s := server.NewMCPServer(
		"GapAgent",
		version,
		server.WithResourceCapabilities(true, true),
		server.WithLogging(),
	)

	// --- Resources ---

	s.AddResource(
		mcp.NewResource(
			uriSession,
			"Session Summary",
			mcp.WithResourceDescription("Uploaded sources and which results exist"),
			mcp.WithMIMEType("application/json"),
		),
		ms.handleSessionSummary,
	)

	s.AddResource(
		mcp.NewResource(
			uriGapTable,
			"Gap Table",
			mcp.WithResourceDescription("The current research gap table as Markdown"),
			mcp.WithMIMEType("text/markdown"),
		),
		ms.handleGapTable,
	)

	s.AddResource(
		mcp.NewResource(
			uriTranscript,
			"Conversation Transcript",
			mcp.WithResourceDescription("Q&A history as a Markdown transcript"),
			mcp.WithMIMEType("text/markdown"),
		),
		ms.handleTranscript,
	)

	// --- Tools ---

	s.AddTool(
		mcp.NewTool(
			"parse_table",
			mcp.WithDescription("Parse a Markdown table out of free-form model output. Never fails; unusable input yields an error row."),
			mcp.WithString("text", mcp.Required(), mcp.Description("Raw model output")),
		),
		ms.handleParseTable,
	)

	s.AddTool(
		mcp.NewTool(
			"load_documents",
			mcp.WithDescription("Extract text from PDF/DOCX files on disk and make it the session corpus."),
			mcp.WithString("paths", mcp.Required(), mcp.Description("File paths separated by newlines or commas")),
		),
		ms.handleLoadDocuments,
	)

	s.AddTool(
		mcp.NewTool(
			"gap_table",
			mcp.WithDescription("Generate the research gap table for the loaded documents."),
			mcp.WithBoolean("concise", mcp.Description("Also condense the table (default false)")),
		),
		ms.handleGapTableTool,
	)

	s.AddTool(
		mcp.NewTool(
			"literature_review",
			mcp.WithDescription("Write a five-section literature review with IEEE citations."),
		),
		ms.handleLiteratureReview,
	)

	s.AddTool(
		mcp.NewTool(
			"ask",
			mcp.WithDescription("Answer a question from the loaded documents."),
			mcp.WithString("question", mcp.Required(), mcp.Description("The question")),
		),
		ms.handleAsk,
	)

	return s
}

// --- Resource Handlers ---

func (ms *MCPServer) handleSessionSummary(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	ms.mu.Lock()
	summary := ms.session.Summary()
	ms.mu.Unlock()

	jsonBytes, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal summary: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(jsonBytes),
		},
	}, nil
}

func (ms *MCPServer) handleGapTable(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if ms.session.GapTable == nil {
		return nil, fmt.Errorf("no gap table has been generated")
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "text/markdown",
			Text:     ms.session.GapTable.Markdown(),
		},
	}, nil
}

func (ms *MCPServer) handleTranscript(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "text/markdown",
			Text:     ms.session.History.Transcript(),
		},
	}, nil
}

// --- Tool Handlers ---

func (ms *MCPServer) handleParseTable(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	text, ok := args["text"].(string)
	if !ok {
		return mcp.NewToolResultError("text argument required"), nil
	}
	return tableResult(table.Parse(text))
}

func (ms *MCPServer) handleLoadDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	raw, ok := args["paths"].(string)
	if !ok {
		return mcp.NewToolResultError("paths argument required"), nil
	}

	docs, err := ingest.ReadFiles(strings.FieldsFunc(raw, func(r rune) bool { return r == '\n' || r == ',' }))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()
	results, err := ms.analysis.Ingest(ctx, ms.session, docs)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var sb strings.Builder
	for _, r := range results {
		if r.Error != "" {
			fmt.Fprintf(&sb, "%s: skipped (%s)\n", r.Name, r.Error)
		} else {
			fmt.Fprintf(&sb, "%s: %d characters\n", r.Name, r.Chars)
		}
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (ms *MCPServer) handleGapTableTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	concise, _ := request.GetArguments()["concise"].(bool)

	ms.mu.Lock()
	defer ms.mu.Unlock()
	res, err := ms.analysis.Analyze(ctx, ms.session, service.AnalyzeOptions{GapTable: true}, ms.apiKey)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !res.Valid {
		return mcp.NewToolResultError(res.Message), nil
	}
	if !concise {
		return tableResult(res.GapTable)
	}

	short, err := ms.analysis.Condense(ctx, ms.session, ms.apiKey)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return tableResult(short)
}

func (ms *MCPServer) handleLiteratureReview(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	res, err := ms.analysis.Analyze(ctx, ms.session, service.AnalyzeOptions{LiteratureReview: true}, ms.apiKey)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !res.Valid {
		return mcp.NewToolResultError(res.Message), nil
	}
	return mcp.NewToolResultText(res.Review), nil
}

func (ms *MCPServer) handleAsk(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, ok := request.GetArguments()["question"].(string)
	if !ok {
		return mcp.NewToolResultError("question argument required"), nil
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()
	resp, err := ms.analysis.Ask(ctx, ms.session, question, ms.apiKey)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if resp.Failed() {
		return mcp.NewToolResultError(resp.Text), nil
	}
	return mcp.NewToolResultText(resp.Text), nil
}

// tableResult returns the table as Markdown text plus its JSON form.
func tableResult(t *table.Table) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal table: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(t.Markdown()),
			mcp.NewTextContent(string(jsonBytes)),
		},
		IsError: t.Degraded(),
	}, nil
}
