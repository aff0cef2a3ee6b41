package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aatumaykin/profsweep/internal/config"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `Validate and inspect profsweep configuration.`,
}

// configValidateCmd represents the config validate command
var configValidateCmd = &cobra.Command{
	Use:   "validate [config-file]",
	Short: "Validate configuration file",
	Long:  `Validate the configuration file and report every problem found.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		path := configPath
		if len(args) > 0 {
			path = args[0]
		}

		if err := config.LoadEnvOptional(envPath); err != nil {
			return fatal(out, err)
		}
		cfg, err := config.Load(path)
		if err != nil {
			return fatal(out, err)
		}

		errs := cfg.Validate()
		for _, e := range errs {
			fmt.Fprintf(out, "  - %v\n", e)
		}
		if len(errs) > 0 {
			return fatal(out, fmt.Errorf("%s: %d validation error(s)", path, len(errs)))
		}

		fmt.Fprintf(out, "%s: configuration is valid\n", path)
		return nil
	},
}

// configShowCmd represents the config show command
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long:  `Print the configuration after defaults and environment expansion, with secrets masked.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		out := cmd.OutOrStdout()
		cfg, err := loadConfig(cmd)
		if err != nil {
			return fatal(out, err)
		}
		text, err := cfg.TOML()
		if err != nil {
			return fatal(out, err)
		}
		fmt.Fprint(out, text)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configShowCmd)
}
