package cmd

import (
	"github.com/spf13/cobra"
)

var (
	envFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "peopleagent",
	Short: "Ask questions about people in your Microsoft 365 directory",
	Long: `peopleagent answers natural-language questions about one person at a time
(profile, manager, reports, devices, colleagues, documents) by fetching their
directory data from Microsoft Graph and composing an answer with a chat model.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")
}
