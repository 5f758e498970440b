package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var askSession string

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about your documents",
	Long: `Answers a question grounded in the indexed documents. The turn is
recorded in a conversation session; pass --session to continue an
existing conversation.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askSession, "session", "s", "", "conversation session id")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if chatService == nil {
		return errors.New("chat service not configured")
	}

	ctx := context.Background()

	answer, err := chatService.Ask(ctx, askSession, args[0])
	if err != nil {
		return fmt.Errorf("failed to answer: %w", err)
	}

	cmd.Println(answer.Text)

	if len(answer.ChunkIDs) > 0 {
		cmd.Println()
		cmd.Println("Sources:")
		printSources(cmd, answer.ChunkIDs)
	}

	for _, call := range answer.ToolCalls {
		if call.Failed() {
			cmd.Printf("  tool %s failed: %s\n", call.Name, call.Error)
		}
	}

	if askSession == "" && answer.SessionID != "" {
		cmd.Println()
		cmd.Printf("Session: %s (use --session to continue)\n", answer.SessionID)
	}

	return nil
}

// printSources lists the distinct documents behind the grounding chunks.
func printSources(cmd *cobra.Command, chunkIDs []int64) {
	if chunkStore == nil {
		return
	}

	ctx := context.Background()
	seen := make(map[string]bool)

	chunks, err := chunkStore.GetMany(ctx, chunkIDs)
	if err != nil {
		cmd.Printf("  (failed to resolve sources: %v)\n", err)
		return
	}

	for i := range chunks {
		docID := chunks[i].DocumentID
		if seen[docID] {
			continue
		}
		seen[docID] = true

		doc, err := chunkStore.GetDocument(ctx, docID)
		if err != nil {
			cmd.Printf("  - %s\n", docID)
			continue
		}
		cmd.Printf("  - %s\n", doc.Path)
	}
}
