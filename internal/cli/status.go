package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/parabrain-dev/parabrain/internal/observability"
	"github.com/spf13/cobra"
)

var (
	statusMaxAge int
	statusAlert  bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check pipeline health",
	Long: `Check the health of the processing pipeline: model server
reachability, last successful run, and failure counts.

Exits non-zero when the system is unhealthy, so the command can be
used from cron or monitoring scripts.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Health == nil {
			return fmt.Errorf("health checker not initialized")
		}

		report, err := Health.Check(cmd.Context(), time.Duration(statusMaxAge)*time.Minute)
		if err != nil {
			return fmt.Errorf("checking health: %w", err)
		}

		if report.Healthy {
			fmt.Println("HEALTHY - All checks passed")
			if !report.LastSuccess.IsZero() {
				fmt.Printf("  Last success: %s\n", report.LastSuccess.Format(time.RFC3339))
			}
			return nil
		}

		fmt.Println("UNHEALTHY - Issues found:")
		for _, issue := range report.Issues {
			fmt.Printf("  - %s\n", issue)
		}

		if statusAlert && Notifier != nil {
			alert := observability.Alert{
				ID:          "health-check",
				Condition:   "health_check_failed",
				Severity:    observability.SeverityHigh,
				Message:     "Health check failed: " + strings.Join(report.Issues, "; "),
				TriggeredAt: time.Now().UTC(),
			}
			if err := Notifier.Notify([]observability.Alert{alert}); err != nil {
				fmt.Printf("  (alert notification failed: %v)\n", err)
			}
		}

		return fmt.Errorf("%d issue(s) found", len(report.Issues))
	},
}

func init() {
	statusCmd.Flags().IntVar(&statusMaxAge, "max-age", 60, "Maximum minutes since last successful run")
	statusCmd.Flags().BoolVar(&statusAlert, "alert", false, "Send a Slack alert when unhealthy")
	rootCmd.AddCommand(statusCmd)
}
