package cli

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"
)

var metricsDays int

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Show processing metrics derived from the event log",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if MetricsCalc == nil {
			return fmt.Errorf("metrics calculator not initialized (observability may be disabled)")
		}

		since := time.Now().UTC().AddDate(0, 0, -metricsDays)
		metrics, err := MetricsCalc.Calculate(since)
		if err != nil {
			return fmt.Errorf("calculating metrics: %w", err)
		}

		fmt.Printf("Metrics for the last %d day(s):\n", metricsDays)
		fmt.Printf("  %-22s %d\n", "Events", metrics.EventCount)
		fmt.Printf("  %-22s %d\n", "Messages processed", metrics.MessagesProcessed)
		fmt.Printf("  %-22s %d\n", "Messages failed", metrics.MessagesFailed)
		fmt.Printf("  %-22s %d\n", "Notes created", metrics.NotesCreated)
		fmt.Printf("  %-22s %d\n", "Low confidence", metrics.LowConfidence)
		fmt.Printf("  %-22s %d\n", "Model timeouts", metrics.LLMTimeouts)
		if metrics.NotesCreated > 0 {
			fmt.Printf("  %-22s %.0f%%\n", "Average confidence", metrics.AverageConfidence*100)
		}

		if len(metrics.NotesByDomain) > 0 {
			fmt.Println("\nNotes by domain:")
			printCountMap(metrics.NotesByDomain)
		}
		if len(metrics.NotesByLabel) > 0 {
			fmt.Println("\nNotes by category:")
			printCountMap(metrics.NotesByLabel)
		}

		return nil
	},
}

func printCountMap(counts map[string]int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %-22s %d\n", k, counts[k])
	}
}

func init() {
	metricsCmd.Flags().IntVar(&metricsDays, "days", 7, "Time window in days")
	rootCmd.AddCommand(metricsCmd)
}
