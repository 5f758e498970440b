package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JIWOOK23/LocalMind/internal/core/services"
)

var (
	exportFormat string
	exportDir    string
)

var exportCmd = &cobra.Command{
	Use:   "export [session-id]",
	Short: "Export a conversation to a file",
	Long: `Writes a conversation session transcript to a file in the export
directory. Supported formats: json, txt, md.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "txt", "export format (json, txt, md)")
	exportCmd.Flags().StringVarP(&exportDir, "dir", "d", "", "export directory (default ~/.localmind/exports)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	if conversationStore == nil {
		return errors.New("conversation store not configured")
	}

	ctx := context.Background()

	tool := services.NewExportChatTool(conversationStore, exportDir)
	result, err := tool.Call(ctx, map[string]any{
		"conversation_id": args[0],
		"format":          exportFormat,
	})
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	cmd.Println(result)
	return nil
}
