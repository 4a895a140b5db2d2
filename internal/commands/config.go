package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/diogo/gemmy/internal/config"
)

// NewConfigCmd creates the config command with its subcommands.
// A nil deps uses the default implementations.
func NewConfigCmd(deps *Dependencies) *cobra.Command {
	deps = deps.withDefaults()

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Open configuration menu",
		Long:  `Interactive menu to configure gemmy settings.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !deps.IsTerminal() {
				return fmt.Errorf("the configuration menu needs a terminal; use 'gemmy config set <key> <value>'")
			}
			cfg, err := deps.LoadConfig()
			if err != nil {
				fmt.Fprintf(deps.Stderr, "Warning: %v (using defaults)\n", err)
			}
			path, err := deps.GetConfigPath()
			if err != nil {
				return err
			}
			return deps.TUI.RunConfig(cfg, path)
		},
	}

	cmd.AddCommand(newConfigShowCmd(deps))
	cmd.AddCommand(newConfigPathCmd(deps))
	cmd.AddCommand(newConfigSetCmd(deps))

	return cmd
}

func newConfigShowCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the current configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := deps.LoadConfig()
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(cfg, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			fmt.Fprintln(deps.Stdout, string(data))
			fmt.Fprintf(deps.Stdout, "api key: %s\n", apiKeySource())
			return nil
		},
	}
}

// apiKeySource names the variable that holds the key, never the key itself
func apiKeySource() string {
	for _, name := range config.APIKeyEnvVars {
		if strings.TrimSpace(os.Getenv(name)) != "" {
			return "set via " + name
		}
	}
	return "not set"
}

func newConfigPathCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := deps.GetConfigPath()
			if err != nil {
				return err
			}
			fmt.Fprintln(deps.Stdout, path)
			return nil
		},
	}
}

func newConfigSetCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one setting",
		Long:  "Change one setting and save the file.\n\nKeys:\n  " + strings.Join(config.SettableKeys(), "\n  "),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := deps.LoadConfig()
			if err != nil {
				return err
			}
			if err := config.Set(&cfg, args[0], args[1]); err != nil {
				return err
			}
			if err := deps.SaveConfig(cfg); err != nil {
				return err
			}
			fmt.Fprintln(deps.Stdout, successStyle.Render(fmt.Sprintf("✓ %s = %s", args[0], args[1])))
			return nil
		},
	}
}
