// Package cli holds the review-relay command line.
package cli

import (
	"github.com/spf13/cobra"
)

// rootCmd is the base command. Without a subcommand it runs the server.
var rootCmd = &cobra.Command{
	Use:   "review-relay",
	Short: "Relay GitHub pushes to an AI code review and a chat",
	Long: `review-relay receives GitHub push webhooks, fetches the changed files,
asks a review engine for a review and posts it to the Telegram or WhatsApp
chat registered for the repository.

Configuration is read from the environment, an optional .env file and the
YAML file named by CONFIG_FILE.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(registryCmd)
	rootCmd.AddCommand(versionCmd)
}
