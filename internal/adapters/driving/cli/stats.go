package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show corpus and conversation statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	if chunkStore == nil || conversationStore == nil {
		return errors.New("stores not configured")
	}

	ctx := context.Background()

	stats, err := chunkStore.Counts(ctx)
	if err != nil {
		return fmt.Errorf("failed to count corpus: %w", err)
	}

	sessions, turns, err := conversationStore.Counts(ctx)
	if err != nil {
		return fmt.Errorf("failed to count conversations: %w", err)
	}

	cmd.Println("Corpus:")
	cmd.Printf("  Documents: %d\n", stats.DocumentCount)
	cmd.Printf("  Chunks:    %d\n", stats.ChunkCount)

	if len(stats.CategoryCounts) > 0 {
		cmd.Println("  Categories:")
		names := make([]string, 0, len(stats.CategoryCounts))
		for name := range stats.CategoryCounts {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			cmd.Printf("    %-12s %d\n", name, stats.CategoryCounts[name])
		}
	}

	cmd.Println()
	cmd.Println("Conversations:")
	cmd.Printf("  Sessions: %d\n", sessions)
	cmd.Printf("  Turns:    %d\n", turns)

	return nil
}
