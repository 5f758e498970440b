package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/JIWOOK23/LocalMind/internal/core/domain"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [path]...",
	Short: "Index documents from files or directories",
	Long: `Reads text files (.txt, .md) and indexes them for retrieval.
Directories are walked recursively. Re-ingesting a file replaces its
previous chunks.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}

	ctx := context.Background()

	var files []string
	for _, arg := range args {
		found, err := collectFiles(arg)
		if err != nil {
			return err
		}
		files = append(files, found...)
	}

	if len(files) == 0 {
		cmd.Println("No supported files found (.txt, .md).")
		return nil
	}

	var failed int
	for _, path := range files {
		result, err := ingestFile(ctx, path)
		if err != nil {
			failed++
			cmd.Printf("  FAIL %s: %v\n", path, err)
			continue
		}
		cmd.Printf("  OK   %s (%d chunks", path, result.ChunksAdded)
		if result.ChunksRemoved > 0 {
			cmd.Printf(", replaced %d", result.ChunksRemoved)
		}
		cmd.Println(")")
	}

	cmd.Printf("\nIngested %d of %d files.\n", len(files)-failed, len(files))
	if failed > 0 {
		return fmt.Errorf("%d files failed to ingest", failed)
	}
	return nil
}

// collectFiles expands a path into the supported files beneath it.
func collectFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if !info.IsDir() {
		if !supportedFile(path) {
			return nil, fmt.Errorf("unsupported file type: %s", path)
		}
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && p != path {
				return filepath.SkipDir
			}
			return nil
		}
		if supportedFile(p) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", path, err)
	}
	return files, nil
}

func supportedFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		return true
	}
	return false
}

func ingestFile(ctx context.Context, path string) (*domain.IngestResult, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	doc := &domain.Document{
		ID:         abs,
		Path:       abs,
		Title:      filepath.Base(abs),
		Format:     strings.TrimPrefix(strings.ToLower(filepath.Ext(abs)), "."),
		Content:    string(data),
		IngestedAt: time.Now(),
	}

	return indexService.Ingest(ctx, doc)
}
