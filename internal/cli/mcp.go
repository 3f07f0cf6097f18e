package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	pbmcp "github.com/parabrain-dev/parabrain/internal/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  "Commands for running the parabrain MCP (Model Context Protocol) server.",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the parabrain MCP server on stdio",
	Long: `Start the parabrain MCP server on stdio transport.

The server exposes parabrain functionality as MCP tools that AI
assistants can call: classify_text, file_note, get_vocabulary,
rescan_vault, health_check, get_metrics, get_alerts.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Classifier == nil || Scanner == nil || Writer == nil {
			return fmt.Errorf("services not initialized")
		}

		srv := pbmcp.NewServer(Classifier, Scanner, Writer, Health, MetricsCalc, AlertEngine, appVersion)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("running MCP server: %w", err)
		}

		return nil
	},
}

func init() {
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}
