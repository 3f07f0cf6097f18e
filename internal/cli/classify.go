package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	classifyShowRaw bool
	classifyFile    bool
)

var classifyCmd = &cobra.Command{
	Use:   "classify <text>",
	Short: "Classify text into the vault taxonomy",
	Long: `Classify a piece of captured text using the local LLM and print the
resulting domain, PARA group, subject, category, and confidence.

With --file the note is also written into the vault.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Classifier == nil {
			return fmt.Errorf("classifier not initialized")
		}

		text := strings.Join(args, " ")
		result, err := Classifier.Classify(cmd.Context(), text)
		if err != nil {
			return fmt.Errorf("classifying text: %w", err)
		}

		fmt.Printf("Domain:     %s\n", result.Domain)
		fmt.Printf("PARA group: %s\n", result.CategoryGroup)
		fmt.Printf("Subject:    %s\n", result.Subcategory)
		fmt.Printf("Category:   %s\n", result.CategoryLabel)
		fmt.Printf("Confidence: %.0f%%\n", result.Confidence*100)
		fmt.Printf("Reasoning:  %s\n", result.Reasoning)
		if classifyShowRaw {
			fmt.Printf("\nRaw response:\n%s\n", result.RawResponse)
		}

		if classifyFile {
			if Writer == nil {
				return fmt.Errorf("note writer not initialized")
			}
			path, err := Writer.CreateNote(result, text, nil, time.Now())
			if err != nil {
				return fmt.Errorf("creating note: %w", err)
			}
			fmt.Printf("\nFiled: %s\n", path)
		}

		return nil
	},
}

func init() {
	classifyCmd.Flags().BoolVar(&classifyShowRaw, "raw", false, "Print the raw model response")
	classifyCmd.Flags().BoolVar(&classifyFile, "file", false, "Write the classified note into the vault")
	rootCmd.AddCommand(classifyCmd)
}
