package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JIWOOK23/LocalMind/internal/core/domain"
)

var (
	searchLimit      int
	searchJSON       bool
	searchCategories []string
	searchScoped     bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed documents",
	Long: `Performs semantic search across all indexed chunks. Results are
ranked by vector similarity, boosted by category overlap with the
classified query.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 5, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	searchCmd.Flags().StringSliceVarP(&searchCategories, "category", "c", nil, "restrict ranking to these categories")
	searchCmd.Flags().BoolVar(&searchScoped, "scoped", false, "drop results outside the given categories")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	if retrieveService == nil {
		return errors.New("retrieval service not configured")
	}

	ctx := context.Background()
	opts := domain.SearchOptions{
		TopK:           searchLimit,
		Categories:     searchCategories,
		CategoryScoped: searchScoped,
	}

	results, err := retrieveService.Retrieve(ctx, query, opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, results)
	}

	return outputSearchTable(cmd, results)
}

func outputSearchJSON(cmd *cobra.Command, results []domain.SearchResult) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, results []domain.SearchResult) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range results {
		cmd.Printf("  [%d] %s (%.2f)\n", i+1, results[i].Source, results[i].Score)
		if len(results[i].Chunk.Categories) > 0 {
			cmd.Printf("      Categories: %s\n", strings.Join(results[i].Chunk.Categories, ", "))
		}
		cmd.Printf("      %s\n", snippet(results[i].Chunk.Content, 160))
		cmd.Println()
	}

	return nil
}

// snippet collapses whitespace and truncates to n runes.
func snippet(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
