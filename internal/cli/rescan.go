package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rescanCmd = &cobra.Command{
	Use:   "rescan",
	Short: "Rescan the vault and refresh the structure cache",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Scanner == nil {
			return fmt.Errorf("vault scanner not initialized")
		}

		structure, err := Scanner.Rescan()
		if err != nil {
			return fmt.Errorf("rescanning vault: %w", err)
		}

		vocab := structure.Flatten()
		fmt.Printf("Vault rescanned: %d domains, %d subjects\n", len(vocab.Domains), len(vocab.Subcategories))
		for _, domain := range structure.Domains() {
			fmt.Printf("  %s\n", domain)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rescanCmd)
}
