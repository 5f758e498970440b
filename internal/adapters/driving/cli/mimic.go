package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var mimicSession string

var mimicCmd = &cobra.Command{
	Use:   "mimic [text]",
	Short: "Rewrite text in the style of your documents",
	Long: `Rewrites the given text to match the writing style of the indexed
documents. Exemplar passages are retrieved and profiled for sentence
length, vocabulary, and formality; the rewrite follows that profile.`,
	Args: cobra.ExactArgs(1),
	RunE: runMimic,
}

func init() {
	mimicCmd.Flags().StringVarP(&mimicSession, "session", "s", "", "conversation session id")
	rootCmd.AddCommand(mimicCmd)
}

func runMimic(cmd *cobra.Command, args []string) error {
	if chatService == nil {
		return errors.New("chat service not configured")
	}

	ctx := context.Background()

	answer, err := chatService.MimicStyle(ctx, mimicSession, args[0])
	if err != nil {
		return fmt.Errorf("failed to rewrite: %w", err)
	}

	cmd.Println(answer.Text)
	return nil
}
