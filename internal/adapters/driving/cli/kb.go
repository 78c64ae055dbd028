package cli

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/parley/internal/core/domain"
)

var (
	kbSearchK    int
	kbStatsJSON  bool
	kbClearForce bool
)

var kbCmd = &cobra.Command{
	Use:   "kb",
	Short: "Inspect and manage the knowledge base",
}

var kbStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show knowledge-base statistics",
	RunE:  runKBStats,
}

var kbClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every document from the knowledge base",
	RunE:  runKBClear,
}

var kbSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Find the chunks most similar to a query",
	Long: `Embed the query and list the most similar knowledge-base chunks with
their cosine similarity, without asking the language model.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runKBSearch,
}

func init() {
	kbStatsCmd.Flags().BoolVar(&kbStatsJSON, "json", false, "output statistics as JSON")
	kbClearCmd.Flags().BoolVarP(&kbClearForce, "force", "f", false, "do not ask for confirmation")
	kbSearchCmd.Flags().IntVarP(&kbSearchK, "k", "k", 5, "number of chunks to return")
	kbCmd.AddCommand(kbStatsCmd)
	kbCmd.AddCommand(kbClearCmd)
	kbCmd.AddCommand(kbSearchCmd)
	rootCmd.AddCommand(kbCmd)
}

func runKBStats(cmd *cobra.Command, _ []string) error {
	if knowledgeService == nil {
		return errors.New("knowledge service not configured")
	}

	stats := knowledgeService.Stats()
	if kbStatsJSON {
		return writeJSON(cmd.OutOrStdout(), stats)
	}

	cmd.Println("Knowledge Base")
	cmd.Println("==============")
	cmd.Printf("  Documents:  %d\n", stats.TotalDocuments)
	cmd.Printf("  Embeddings: %d\n", stats.TotalEmbeddings)
	cmd.Printf("  Files:      %d\n", stats.UniqueFiles)

	if len(stats.Files) == 0 {
		return nil
	}
	names := make([]string, 0, len(stats.Files))
	for name := range stats.Files {
		names = append(names, name)
	}
	sort.Strings(names)

	cmd.Println()
	for _, name := range names {
		fs := stats.Files[name]
		cmd.Printf("  %s: %d chunks (%s)\n", name, fs.ChunkCount, fs.Path)
	}
	return nil
}

func runKBClear(cmd *cobra.Command, _ []string) error {
	if knowledgeService == nil {
		return errors.New("knowledge service not configured")
	}

	if !kbClearForce {
		cmd.Print("Remove every document from the knowledge base? [y/N]: ")
		answer := strings.ToLower(readLine(newLineReader(cmd)))
		if answer != "y" && answer != "yes" {
			cmd.Println("Cancelled.")
			return nil
		}
	}

	if err := knowledgeService.Clear(cmd.Context()); err != nil {
		return fmt.Errorf("failed to clear knowledge base: %w", err)
	}
	cmd.Println("Knowledge base cleared.")
	return nil
}

func runKBSearch(cmd *cobra.Command, args []string) error {
	if knowledgeService == nil {
		return errors.New("knowledge service not configured")
	}

	if knowledgeService.Stats().TotalEmbeddings == 0 {
		cmd.Println("The knowledge base is empty. Run 'parley ingest PATH' first.")
		return nil
	}

	query := strings.Join(args, " ")
	hits, err := knowledgeService.SimilaritySearch(cmd.Context(), query, kbSearchK)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(hits) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Printf("Results: %d\n\n", len(hits))
	for i, hit := range hits {
		meta := hit.Record.Metadata
		cmd.Printf("%d. %s [chunk %s] (similarity %.3f)\n",
			i+1, meta[domain.MetaFileName], meta[domain.MetaChunkIndex], hit.Similarity)
		if path := meta[domain.MetaFilePath]; path != "" {
			cmd.Printf("   %s\n", path)
		}
		cmd.Printf("   %s\n\n", preview(hit.Record.Document, 200))
	}
	return nil
}
