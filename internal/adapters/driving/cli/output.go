package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/custodia-labs/parley/internal/core/domain"
)

// printAnswer writes notices, the answer text, its sources and the route.
func printAnswer(w io.Writer, answer domain.Answer) {
	for _, notice := range answer.Notices {
		fmt.Fprintf(w, "(%s)\n", notice)
	}
	fmt.Fprintln(w, answer.Text)

	if len(answer.Sources) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Sources:")
		for _, src := range answer.Sources {
			fmt.Fprintf(w, "  - %s\n", formatSource(src))
		}
	}

	route := answer.Tool.Description()
	if answer.FellBack {
		route += ", after fallback"
	}
	fmt.Fprintf(w, "[%s]\n", route)
}

func formatSource(src domain.SourceRef) string {
	if src.Location == "" || src.Location == src.Name {
		return src.Name
	}
	if src.Name == "" {
		return src.Location
	}
	return fmt.Sprintf("%s (%s)", src.Name, src.Location)
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

// printReport summarises an ingestion run.
func printReport(w io.Writer, report domain.IngestReport) {
	fmt.Fprintf(w, "Ingested %d document(s), %d chunk(s)", report.Ingested, report.Chunks)
	if report.Skipped > 0 {
		fmt.Fprintf(w, ", skipped %d empty", report.Skipped)
	}
	fmt.Fprintln(w)

	if len(report.Pending) > 0 {
		fmt.Fprintf(w, "Not processed %d:\n", len(report.Pending))
		for _, p := range report.Pending {
			fmt.Fprintf(w, "  - %s\n", p)
		}
	}
	if len(report.Failures) == 0 {
		return
	}
	keys := make([]string, 0, len(report.Failures))
	for k := range report.Failures {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintf(w, "Failed %d:\n", len(keys))
	for _, k := range keys {
		fmt.Fprintf(w, "  - %s: %v\n", k, report.Failures[k])
	}
}

// preview collapses whitespace and truncates s to n runes.
func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > n {
		return string(r[:n]) + "..."
	}
	return s
}
