package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"smartkb/internal/usecase"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Reload the knowledge base when its files change on disk",
	Long: `Watch the store files and reload the in-memory state whenever
another process saves a new snapshot. Runs until interrupted.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(0)
	defer cancel()

	engine, err := openEngine(ctx)
	if err != nil {
		return err
	}

	watcher, err := usecase.NewWatcher(engine, cfg.Store.Path, cfg.WatchDebounce(), logger)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer watcher.Stop()

	fmt.Printf("Watching %s (Ctrl-C to stop)\n", cfg.Store.Path)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	fmt.Println("\nStopping.")
	return nil
}
