package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/JIWOOK23/LocalMind/internal/logger"
)

// watchDebounce coalesces the event bursts editors produce on save.
const watchDebounce = 500 * time.Millisecond

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Watch a directory and re-index changed files",
	Long: `Watches a directory for changes to supported files (.txt, .md).
Created or modified files are re-ingested; removed files are dropped
from the index. Runs until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}

	dir := args[0]
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory: %s", dir)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd.Printf("Watching %s (Ctrl+C to stop)\n", dir)

	// Editors save via temp-file-and-rename, producing bursts of
	// events per file. Debounce per path before re-ingesting.
	var mu sync.Mutex
	pending := make(map[string]*time.Timer)

	schedule := func(path string) {
		mu.Lock()
		defer mu.Unlock()
		if timer, ok := pending[path]; ok {
			timer.Stop()
		}
		pending[path] = time.AfterFunc(watchDebounce, func() {
			mu.Lock()
			delete(pending, path)
			mu.Unlock()

			result, err := ingestFile(ctx, path)
			if err != nil {
				logger.Error("re-ingest %s: %v", path, err)
				return
			}
			cmd.Printf("  re-ingested %s (%d chunks)\n", path, result.ChunksAdded)
		})
	}

	for {
		select {
		case <-ctx.Done():
			cmd.Println("Stopped.")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !supportedFile(event.Name) {
				continue
			}
			logger.Debug("watch event: %s", event)

			switch {
			case event.Has(fsnotify.Write) || event.Has(fsnotify.Create):
				schedule(event.Name)

			case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
				abs, err := filepath.Abs(event.Name)
				if err != nil {
					continue
				}
				if err := indexService.Remove(ctx, abs); err != nil {
					logger.Debug("remove %s: %v", abs, err)
					continue
				}
				cmd.Printf("  removed %s\n", abs)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error: %v", err)
		}
	}
}
