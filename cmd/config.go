package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/splice/internal/config"
	"github.com/zjrosen/splice/internal/presentation"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show and edit the configuration",
	Long: `Show and edit the configuration.

Config lookup order:
  1. --config flag
  2. .splice/config.yaml (current directory)
  3. ~/.config/splice/config.yaml

When none exists the defaults are written to ~/.config/splice/config.yaml.
"config init .splice/config.yaml" creates a per-repository override.

Keys are dotted paths such as diff.context_lines or tracing.enabled.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return presentation.NewFormatter(cmd.OutOrStdout(), jsonFlag).FormatSettings(viper.AllSettings())
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file in use",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return presentation.NewFormatter(cmd.OutOrStdout(), jsonFlag).Message("%s", configPath())
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var path string
		if len(args) == 1 {
			path = args[0]
		} else {
			p, err := userConfigPath()
			if err != nil {
				return err
			}
			path = p
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
		if err := config.WriteDefaultConfig(path); err != nil {
			return err
		}
		return presentation.NewFormatter(cmd.OutOrStdout(), jsonFlag).Message("wrote %s", path)
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set one key in the config file, keeping comments",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath()
		if err := config.SetValue(path, args[0], args[1]); err != nil {
			return err
		}
		return presentation.NewFormatter(cmd.OutOrStdout(), jsonFlag).Message("set %s in %s", args[0], path)
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configPathCmd, configInitCmd, configSetCmd)
	rootCmd.AddCommand(configCmd)
}
