package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/JIWOOK23/LocalMind/internal/core/domain"
)

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query      string   `json:"query" jsonschema:"the search query to find passages"`
	K          int      `json:"k,omitempty" jsonschema:"maximum number of passages to return (default 5)"`
	Categories []string `json:"categories,omitempty" jsonschema:"restrict results to these categories"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single retrieved passage.
type SearchResultOutput struct {
	ChunkID    int64    `json:"chunk_id"`
	DocumentID string   `json:"document_id"`
	Source     string   `json:"source"`
	Score      float64  `json:"score"`
	Categories []string `json:"categories,omitempty"`
	Content    string   `json:"content"`
}

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question  string `json:"question" jsonschema:"the question to answer from the indexed documents"`
	SessionID string `json:"session_id,omitempty" jsonschema:"conversation session to continue, empty starts a new one"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer   string           `json:"answer"`
	ChunkIDs []int64          `json:"chunk_ids,omitempty"`
	Tools    []ToolCallOutput `json:"tools,omitempty"`
}

// ToolCallOutput summarises one tool invocation made during a turn.
type ToolCallOutput struct {
	Name  string `json:"name"`
	Error string `json:"error,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Search the indexed documents for relevant passages",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question grounded in the indexed documents",
	}, s.handleAsk)
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	opts := domain.SearchOptions{
		TopK:       input.K,
		Categories: input.Categories,
	}
	opts.CategoryScoped = len(input.Categories) > 0

	results, err := s.ports.Retriever.Retrieve(ctx, input.Query, opts)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]SearchResultOutput, len(results)),
		Count:   len(results),
	}
	for i := range results {
		output.Results[i] = SearchResultOutput{
			ChunkID:    results[i].Chunk.ID,
			DocumentID: results[i].Chunk.DocumentID,
			Source:     results[i].Source,
			Score:      results[i].Score,
			Categories: results[i].Chunk.Categories,
			Content:    results[i].Chunk.Content,
		}
	}

	return nil, output, nil
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	answer, err := s.ports.Chat.Ask(ctx, input.SessionID, input.Question)
	if err != nil {
		return nil, AskOutput{}, err
	}

	output := AskOutput{
		Answer:   answer.Text,
		ChunkIDs: answer.ChunkIDs,
	}
	for _, call := range answer.ToolCalls {
		output.Tools = append(output.Tools, ToolCallOutput{Name: call.Name, Error: call.Error})
	}

	return nil, output, nil
}
