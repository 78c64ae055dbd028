package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/parley/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for knowledge-base resources.
	uriScheme = "knowledge://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "stats",
		Name:        "stats",
		Description: "Knowledge-base totals: documents, embeddings and unique files",
		MIMEType:    "application/json",
	}, s.handleStatsResource)

	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "files",
		Name:        "files",
		Description: "Files ingested into the knowledge base with their chunk counts",
		MIMEType:    "application/json",
	}, s.handleFilesResource)
}

// statsOutput is the JSON body of the stats resource.
type statsOutput struct {
	TotalDocuments  int `json:"total_documents"`
	TotalEmbeddings int `json:"total_embeddings"`
	UniqueFiles     int `json:"unique_files"`
}

// handleStatsResource returns knowledge-base totals.
func (s *Server) handleStatsResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	stats := s.stats()
	return jsonResource(req.Params.URI, statsOutput{
		TotalDocuments:  stats.TotalDocuments,
		TotalEmbeddings: stats.TotalEmbeddings,
		UniqueFiles:     stats.UniqueFiles,
	})
}

// fileOutput describes one ingested file.
type fileOutput struct {
	Name       string `json:"name"`
	Path       string `json:"path"`
	ChunkCount int    `json:"chunk_count"`
}

// handleFilesResource lists ingested files sorted by name.
func (s *Server) handleFilesResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	return jsonResource(req.Params.URI, fileList(s.stats()))
}

func (s *Server) stats() domain.KnowledgeStats {
	if s.ports.Knowledge == nil {
		return domain.KnowledgeStats{}
	}
	return s.ports.Knowledge.Stats()
}

// fileList flattens per-file stats in name order.
func fileList(stats domain.KnowledgeStats) []fileOutput {
	files := make([]fileOutput, 0, len(stats.Files))
	for name, fs := range stats.Files {
		files = append(files, fileOutput{Name: name, Path: fs.Path, ChunkCount: fs.ChunkCount})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
