package mcp

import (
	"context"
	"errors"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/parley/internal/core/domain"
)

// DefaultSearchLimit is the number of chunks knowledge_search returns when
// no limit is given.
const DefaultSearchLimit = 5

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Query       string   `json:"query" jsonschema:"the question to answer"`
	SessionID   string   `json:"session_id,omitempty" jsonschema:"reuse a conversation across calls; omit for a one-shot question"`
	Attachments []string `json:"attachments,omitempty" jsonschema:"local file paths whose text is provided with the question"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer   string         `json:"answer"`
	Tool     string         `json:"tool"`
	FellBack bool           `json:"fell_back"`
	Sources  []SourceOutput `json:"sources,omitempty"`
	Notices  []string       `json:"notices,omitempty"`
}

// SourceOutput names one source an answer drew on.
type SourceOutput struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	Kind     string `json:"kind"`
}

// SearchInput is the input schema for the knowledge_search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"text to find similar knowledge-base chunks for"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of chunks to return (default 5)"`
}

// SearchOutput is the output schema for the knowledge_search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single similar chunk.
type SearchResultOutput struct {
	ID         string  `json:"id"`
	FileName   string  `json:"file_name"`
	FilePath   string  `json:"file_path"`
	Similarity float64 `json:"similarity"`
	Content    string  `json:"content"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name: "ask",
		Description: "Answer a question by routing it to the knowledge base, a web search, " +
			"a page extraction or the language model",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "knowledge_search",
		Description: "Find the knowledge-base chunks most similar to a text",
	}, s.handleSearch)
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, AskOutput{}, errors.New("query is required")
	}

	session, oneShot := s.session(strings.TrimSpace(input.SessionID))
	if oneShot {
		defer session.Close()
	}

	answer := s.ports.Orchestrator.Handle(ctx, session, input.Query, input.Attachments)

	output := AskOutput{
		Answer:   answer.Text,
		Tool:     answer.Tool.String(),
		FellBack: answer.FellBack,
		Notices:  answer.Notices,
	}
	for _, src := range answer.Sources {
		output.Sources = append(output.Sources, SourceOutput{
			Name:     src.Name,
			Location: src.Location,
			Kind:     string(src.Kind),
		})
	}

	return nil, output, nil
}

// handleSearch handles the knowledge_search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	if s.ports.Knowledge == nil {
		return nil, SearchOutput{Results: []SearchResultOutput{}}, nil
	}

	limit := input.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	hits, err := s.ports.Knowledge.SimilaritySearch(ctx, input.Query, limit)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]SearchResultOutput, len(hits)),
		Count:   len(hits),
	}
	for i, hit := range hits {
		output.Results[i] = SearchResultOutput{
			ID:         hit.Record.ID,
			FileName:   hit.Record.Metadata[domain.MetaFileName],
			FilePath:   hit.Record.Metadata[domain.MetaFilePath],
			Similarity: hit.Similarity,
			Content:    hit.Record.Document,
		}
	}

	return nil, output, nil
}
