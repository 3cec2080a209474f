package cli

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/skim-cli/internal/logger"
)

// watchDebounce coalesces editor save bursts into one extraction.
const watchDebounce = 500 * time.Millisecond

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Re-extract documents as they change",
	Long: `Watches a directory for changes to text and Markdown files and
re-runs extraction on every save, printing the selected segments. Useful
while writing: the extraction shows what a summarizer would consider the
core of the document.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&extractType, "type", "t", "auto", "content type: auto, narrative, expository")
	rootCmd.AddCommand(watchCmd)
}

func watchable(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown", ".txt", ".text":
		return true
	default:
		return false
	}
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if err := ensureServices(ctx); err != nil {
		return err
	}
	defer closeServices()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	dir := args[0]
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	cmd.Printf("Watching %s (Ctrl+C to stop)\n", dir)

	// pending holds paths whose debounce window is open.
	pending := make(map[string]time.Time)
	ticker := time.NewTicker(watchDebounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
				continue
			}
			if !watchable(event.Name) {
				continue
			}
			pending[event.Name] = time.Now()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error: %v", err)

		case now := <-ticker.C:
			for path, stamp := range pending {
				if now.Sub(stamp) < watchDebounce {
					continue
				}
				delete(pending, path)

				result, err := extractFile(cmd, path)
				if err != nil {
					cmd.Println(warnStyle.Render(fmt.Sprintf("%s: %v", path, err)))
					continue
				}
				cmd.Println()
				if err := outputExtractText(cmd, result); err != nil {
					return err
				}
			}
		}
	}
}
