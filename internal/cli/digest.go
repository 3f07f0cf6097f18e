package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var digestPrint bool

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Send the daily task digest",
	Long: `Scan the vault for open tasks and send a daily digest as a Slack DM:
the top actions by priority, the oldest item you might be avoiding, and
anything currently blocked.

With --print the digest is written to stdout instead of being sent, which
is useful for previewing or for piping into other tools.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Digest == nil {
			return fmt.Errorf("digest generator not initialized")
		}

		if digestPrint {
			text, err := Digest.Generate()
			if err != nil {
				return fmt.Errorf("generating digest: %w", err)
			}
			fmt.Println(text)
			return nil
		}

		if err := Digest.Deliver(cmd.Context()); err != nil {
			return fmt.Errorf("delivering digest: %w", err)
		}
		fmt.Println("Digest sent")
		return nil
	},
}

func init() {
	digestCmd.Flags().BoolVar(&digestPrint, "print", false, "Print the digest instead of sending it")
	rootCmd.AddCommand(digestCmd)
}
