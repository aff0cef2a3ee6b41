package main

import (
	"github.com/spf13/cobra"

	"github.com/aatumaykin/profsweep/internal/constants"
)

var (
	configPath string
	envPath    string
	logLevel   string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "profsweep",
	Short: "Prune stale user profiles across a workstation fleet",
	Long: `profsweep finds local user profiles that have not been used for a
configurable number of days on every reachable workstation and removes them.
Runs are dry-run by default; pass --apply to delete.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", constants.DefaultConfigPath, "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&envPath, "env-file", constants.DefaultEnvPath, "Path to .env file loaded before the configuration")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "", "Override log level (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(scheduleCmd)
}
