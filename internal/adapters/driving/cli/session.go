package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var sessionLimit int

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage conversation sessions",
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List conversation sessions",
	Args:  cobra.NoArgs,
	RunE:  runSessionList,
}

func init() {
	sessionListCmd.Flags().IntVarP(&sessionLimit, "limit", "n", 20, "maximum number of sessions")
	sessionCmd.AddCommand(sessionListCmd)
	rootCmd.AddCommand(sessionCmd)
}

func runSessionList(cmd *cobra.Command, _ []string) error {
	if conversationStore == nil {
		return errors.New("conversation store not configured")
	}

	ctx := context.Background()

	sessions, err := conversationStore.ListSessions(ctx, sessionLimit)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	if len(sessions) == 0 {
		cmd.Println("No sessions recorded.")
		return nil
	}

	cmd.Println("Sessions:")
	cmd.Println()
	for i := range sessions {
		cmd.Printf("  %s\n", sessions[i].ID)
		cmd.Printf("    Title:   %s\n", sessions[i].Title)
		if sessions[i].Category != "" {
			cmd.Printf("    Category: %s\n", sessions[i].Category)
		}
		cmd.Printf("    Updated: %s\n", sessions[i].UpdatedAt.Format("2006-01-02 15:04:05"))
		cmd.Println()
	}

	return nil
}
