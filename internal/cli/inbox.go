package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/parabrain-dev/parabrain/internal/core"
	"github.com/spf13/cobra"
)

var inboxDaemon bool

var inboxCmd = &cobra.Command{
	Use:   "inbox",
	Short: "Process captured channel messages",
	Long: `Fetch new messages from the capture channel, classify them with the
local LLM, and file them into the vault.

By default one processing cycle runs and the command exits. With --daemon
the inbox is polled continuously until interrupted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Inbox == nil {
			return fmt.Errorf("inbox processor not initialized (is the Slack bot token configured?)")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if inboxDaemon {
			unlock, err := core.AcquireRunLock(filepath.Join(BasePath, ".state", "inbox.lock"))
			if err != nil {
				return err
			}
			defer func() { _ = unlock() }()

			fmt.Printf("Polling every %ds. Press Ctrl+C to stop.\n", Config.PollIntervalSeconds)
			if err := Inbox.Run(ctx); err != nil && err != context.Canceled {
				return fmt.Errorf("running inbox daemon: %w", err)
			}
			fmt.Println("Graceful shutdown complete")
			return nil
		}

		summary, err := Inbox.ProcessAll(ctx)
		if err != nil {
			return fmt.Errorf("processing inbox: %w", err)
		}
		fmt.Printf("Processed %d messages, %d failures, %d skipped\n",
			summary.Processed, summary.Failed, summary.Skipped)
		return nil
	},
}

func init() {
	inboxCmd.Flags().BoolVarP(&inboxDaemon, "daemon", "d", false, "Poll continuously instead of running once")
	rootCmd.AddCommand(inboxCmd)
}
