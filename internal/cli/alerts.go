package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var alertsNotify bool

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Evaluate and show active alerts",
	Long: `Evaluate alert conditions against the event log: daily failure
counts, stale runs, and model timeouts.

With --notify the triggered alerts are also sent to the configured
Slack webhook.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if AlertEngine == nil {
			return fmt.Errorf("alert engine not initialized (observability may be disabled)")
		}

		alerts, err := AlertEngine.Evaluate()
		if err != nil {
			return fmt.Errorf("evaluating alerts: %w", err)
		}

		if len(alerts) == 0 {
			fmt.Println("No active alerts.")
			return nil
		}

		for _, a := range alerts {
			fmt.Printf("[%s] %s\n", strings.ToUpper(string(a.Severity)), a.Message)
		}

		if alertsNotify {
			if Notifier == nil {
				return fmt.Errorf("notifier not configured (set the Slack webhook URL)")
			}
			if err := Notifier.Notify(alerts); err != nil {
				return fmt.Errorf("sending alert notification: %w", err)
			}
			fmt.Printf("\nSent %d alert(s) to Slack.\n", len(alerts))
		}

		return nil
	},
}

func init() {
	alertsCmd.Flags().BoolVar(&alertsNotify, "notify", false, "Send triggered alerts to the Slack webhook")
	rootCmd.AddCommand(alertsCmd)
}
