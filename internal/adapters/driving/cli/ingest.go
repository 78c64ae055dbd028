package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/parley/internal/logger"
	"github.com/custodia-labs/parley/internal/sources/filesystem"
)

var ingestWatch bool

var ingestCmd = &cobra.Command{
	Use:   "ingest PATH...",
	Short: "Add files and directories to the knowledge base",
	Long: `Parse, chunk, embed and store documents in the knowledge base.

Directories are walked recursively. Supported formats are plain text,
Markdown, HTML, DOCX and PDF; other files are skipped.

With --watch, the command keeps running after the first pass and ingests
files created or saved in the given directories until interrupted.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVarP(&ingestWatch, "watch", "w", false, "keep watching directories for new files")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if knowledgeService == nil {
		return errors.New("knowledge service not configured")
	}

	out := cmd.OutOrStdout()
	report, err := knowledgeService.IngestPaths(cmd.Context(), args)
	printReport(out, report)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	if !ingestWatch {
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	return watchAndIngest(ctx, out, watchRoots(args))
}

// watchRoots returns the directories among paths.
func watchRoots(paths []string) []string {
	var roots []string
	for _, p := range paths {
		p = filesystem.ResolvePath(p)
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			roots = append(roots, p)
		}
	}
	return roots
}

// watchAndIngest ingests every settled file under roots until ctx ends.
func watchAndIngest(ctx context.Context, out io.Writer, roots []string) error {
	if len(roots) == 0 {
		return errors.New("--watch needs at least one directory")
	}

	paths := make(chan string)
	var wg sync.WaitGroup
	for _, root := range roots {
		watcher := filesystem.NewWatcher(root)
		events, err := watcher.Watch(ctx)
		if err != nil {
			return fmt.Errorf("watching %s: %w", root, err)
		}
		defer watcher.Close()

		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range events {
				select {
				case paths <- p:
				case <-ctx.Done():
					return
				}
			}
		}()
		fmt.Fprintf(out, "Watching %s\n", root)
	}
	go func() {
		wg.Wait()
		close(paths)
	}()

	for p := range paths {
		report, err := knowledgeService.IngestPaths(ctx, []string{p})
		if err != nil {
			logger.Error("Ingesting %s: %v", p, err)
			continue
		}
		if failure, ok := firstFailure(report.Failures); ok {
			fmt.Fprintf(out, "Skipped %s: %v\n", p, failure)
			continue
		}
		fmt.Fprintf(out, "Ingested %s (%d chunks)\n", p, report.Chunks)
	}
	return nil
}

func firstFailure(failures map[string]error) (error, bool) {
	for _, err := range failures {
		return err, true
	}
	return nil, false
}
