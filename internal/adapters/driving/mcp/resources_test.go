package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/parley/internal/core/domain"
)

func readRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{Params: &mcp.ReadResourceParams{URI: uri}}
}

func sampleStats() domain.KnowledgeStats {
	return domain.KnowledgeStats{
		TotalDocuments:  5,
		TotalEmbeddings: 5,
		UniqueFiles:     2,
		Files: map[string]domain.FileStats{
			"zeta":  {Path: "/docs/zeta.md", ChunkCount: 2},
			"alpha": {Path: "/docs/alpha.txt", ChunkCount: 3},
		},
	}
}

func TestServer_handleStatsResource(t *testing.T) {
	ctx := context.Background()

	t.Run("returns totals", func(t *testing.T) {
		server, err := NewServer(&Ports{
			Orchestrator: &mockOrchestrator{},
			Knowledge:    &mockKnowledgeService{stats: sampleStats()},
		})
		require.NoError(t, err)

		result, err := server.handleStatsResource(ctx, readRequest("knowledge://stats"))
		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "knowledge://stats", result.Contents[0].URI)
		assert.Equal(t, "application/json", result.Contents[0].MIMEType)

		var stats statsOutput
		require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &stats))
		assert.Equal(t, statsOutput{TotalDocuments: 5, TotalEmbeddings: 5, UniqueFiles: 2}, stats)
	})

	t.Run("empty without knowledge service", func(t *testing.T) {
		server, err := NewServer(&Ports{Orchestrator: &mockOrchestrator{}})
		require.NoError(t, err)

		result, err := server.handleStatsResource(ctx, readRequest("knowledge://stats"))
		require.NoError(t, err)

		var stats statsOutput
		require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &stats))
		assert.Zero(t, stats.TotalDocuments)
	})
}

func TestServer_handleFilesResource(t *testing.T) {
	server, err := NewServer(&Ports{
		Orchestrator: &mockOrchestrator{},
		Knowledge:    &mockKnowledgeService{stats: sampleStats()},
	})
	require.NoError(t, err)

	result, err := server.handleFilesResource(context.Background(), readRequest("knowledge://files"))
	require.NoError(t, err)

	var files []fileOutput
	require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &files))
	require.Len(t, files, 2)
	assert.Equal(t, fileOutput{Name: "alpha", Path: "/docs/alpha.txt", ChunkCount: 3}, files[0])
	assert.Equal(t, "zeta", files[1].Name)
}

func TestFileList_Empty(t *testing.T) {
	files := fileList(domain.KnowledgeStats{})
	assert.NotNil(t, files)
	assert.Empty(t, files)
}
