package main

import (
	"context"
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/sevigo/coderag/internal/core"
	"github.com/sevigo/coderag/internal/orchestrator"
	"github.com/sevigo/coderag/internal/wire"
)

var (
	syncWatch    bool
	syncDebounce time.Duration
)

var syncCmd = &cobra.Command{
	Use:   "sync [project-id]",
	Short: "Re-index a registered project's source tree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectID := args[0]
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		application, cleanup, err := wire.InitializeApp()
		if err != nil {
			return fmt.Errorf("failed to initialize application: %w", err)
		}
		defer cleanup()

		bundle, err := application.OpenProject(projectID)
		if err != nil {
			return fmt.Errorf("failed to open project %q: %w", projectID, err)
		}

		var bar *progressbar.ProgressBar
		bundle.Sync.Progress = func(done, total int) {
			if bar == nil {
				bar = progressbar.NewOptions(total,
					progressbar.OptionSetDescription("embedding"),
					progressbar.OptionShowCount(),
				)
			}
			_ = bar.Set(done)
		}

		done := make(chan struct{})
		var result core.SyncResult
		var runErr error
		job := &orchestrator.SyncJob{
			Sync: bundle.Sync.Sync,
			Result: func(r core.SyncResult, err error) {
				result, runErr = r, err
				close(done)
			},
		}
		if err := application.Dispatcher.Dispatch(ctx, job); err != nil {
			return fmt.Errorf("failed to dispatch sync job: %w", err)
		}
		<-done
		if runErr != nil {
			return fmt.Errorf("sync failed: %w", runErr)
		}
		fmt.Printf("sync complete: %d updated, %d deleted\n", result.Updated, result.Deleted)
		for _, line := range result.Logs {
			fmt.Println(" ", line)
		}

		if !syncWatch {
			return nil
		}

		fmt.Println("watching for changes, press Ctrl+C to stop")
		return bundle.Sync.Watch(ctx, syncDebounce)
	},
}

func init() { //nolint:gochecknoinits // cobra flag registration
	syncCmd.Flags().BoolVar(&syncWatch, "watch", false, "keep syncing as files change")
	syncCmd.Flags().DurationVar(&syncDebounce, "debounce", 500*time.Millisecond, "debounce window for --watch")
}
