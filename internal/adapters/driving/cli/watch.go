package cli

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/narrata-labs/narrata-cli/internal/adapters/driven/config/file"
	"github.com/narrata-labs/narrata-cli/internal/logger"
)

// settleDelay is how long a new file must sit unchanged before it is
// picked up, so half-copied books are not converted.
const settleDelay = 2 * time.Second

var flagWatchOutDir string

var watchCmd = &cobra.Command{
	Use:   "watch <directory>",
	Short: "Watch a directory and convert EPUBs as they appear",
	Long: `Watches a directory and converts every EPUB dropped into it.

Each book is converted with the configured voice settings; output
files are written next to the input unless --out-dir is given.
Conversion failures are logged and the watch continues.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&flagWatchOutDir, "out-dir", "", "directory for converted audiobooks")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	watchDir := args[0]
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(watchDir); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd.Printf("Watching %s for EPUB files. Press Ctrl-C to stop.\n", watchDir)

	// Books already in the directory are converted first.
	entries, err := os.ReadDir(watchDir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if !entry.IsDir() && isEPUB(entry.Name()) {
			watchConvert(ctx, cmd, cfg, filepath.Join(watchDir, entry.Name()))
		}
		if ctx.Err() != nil {
			return nil
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if !isEPUB(event.Name) {
				continue
			}
			if !waitSettled(ctx, event.Name) {
				continue
			}
			watchConvert(ctx, cmd, cfg, event.Name)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watch error: %v", err)
		}
	}
}

func isEPUB(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".epub")
}

// waitSettled waits until the file size stops changing.
func waitSettled(ctx context.Context, path string) bool {
	var lastSize int64 = -1
	for {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(settleDelay):
		}

		info, err := os.Stat(path)
		if err != nil {
			return false
		}
		if info.Size() == lastSize {
			return true
		}
		lastSize = info.Size()
	}
}

// watchConvert converts one book, logging rather than aborting on failure.
func watchConvert(ctx context.Context, cmd *cobra.Command, cfg file.Config, inputPath string) {
	outputPath := strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + ".m4b"
	if flagWatchOutDir != "" {
		outputPath = filepath.Join(flagWatchOutDir, filepath.Base(outputPath))
	}

	if _, err := os.Stat(outputPath); err == nil {
		logger.Info("Skipping %s: %s already exists", inputPath, outputPath)
		return
	}

	cmd.Printf("Converting %s\n", inputPath)
	if err := convertBook(ctx, cmd, cfg, inputPath, outputPath); err != nil {
		logger.Warn("Conversion of %s failed: %v", inputPath, err)
	}
}
