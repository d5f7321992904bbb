package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/alle-ai/alle-go/internal/app"
	configapp "github.com/alle-ai/alle-go/internal/application/config"
	"github.com/alle-ai/alle-go/internal/infrastructure/cli/helpers"
	configinfra "github.com/alle-ai/alle-go/internal/infrastructure/config"
)

// NewConfigCommand creates the config command with all subcommands
func NewConfigCommand(container *app.Container) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and edit ~/.alle/config.yaml",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd.Context(), cmd.OutOrStdout(), container)
		},
	}

	configCmd.AddCommand(
		newConfigShowCommand(container),
		newConfigGetCommand(container),
		newConfigSetCommand(container),
		newConfigKeysCommand(container),
		newConfigValidateCommand(container),
		newConfigResetCommand(container),
		newConfigDiffCommand(container),
	)

	return configCmd
}

func newConfigShowCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration, environment overrides included",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd.Context(), cmd.OutOrStdout(), container)
		},
	}
}

func newConfigGetCommand(container *app.Container) *cobra.Command {
	var key string

	cmd := &cobra.Command{
		Use:   "get [key]",
		Short: "Print one setting, e.g. video.poll_interval",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if key == "" && len(args) == 1 {
				key = args[0]
			}
			if key == "" {
				return fmt.Errorf(ErrKeyRequired)
			}
			return getConfigValue(cmd.Context(), cmd.OutOrStdout(), container, key)
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "Dotted key (see 'alle config keys')")
	return cmd
}

func newConfigSetCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one setting in the config file",
		Long: "Change one setting in the config file. The value is read as YAML and must\n" +
			"match the setting's type; lists accept '[a, b]' or 'a,b'.",
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setConfigValue(cmd.Context(), cmd.OutOrStdout(), container, args[0], strings.Join(args[1:], " "))
		},
	}
}

func newConfigKeysCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List every setting that get and set accept",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listConfigKeys(cmd.Context(), cmd.OutOrStdout(), container)
		},
	}
}

func newConfigValidateCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateConfig(cmd.Context(), cmd.OutOrStdout(), container)
		},
	}
}

func newConfigResetCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Back up the config file and replace it with defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := helpers.ConfirmAction(container, "Overwrite the configuration file with defaults?")
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), MsgCancelled)
				return nil
			}
			return resetConfig(cmd.OutOrStdout(), container)
		},
	}
}

func newConfigDiffCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "diff",
		Short: "Show how the effective configuration differs from the defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			return diffConfig(cmd.Context(), cmd.OutOrStdout(), container)
		},
	}
}

func showConfig(ctx context.Context, out io.Writer, container *app.Container) error {
	cfg, err := container.ConfigProvider.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	return writeYAML(out, cfg)
}

func getConfigValue(ctx context.Context, out io.Writer, container *app.Container, key string) error {
	cfg, err := container.ConfigProvider.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	value, err := helpers.LookupConfigValue(cfg, key)
	if err != nil {
		return err
	}
	return writeYAML(out, value)
}

// setConfigValue edits the file as written, so environment overrides never
// end up persisted.
func setConfigValue(ctx context.Context, out io.Writer, container *app.Container, key, raw string) error {
	loader, err := helpers.GetConfigLoader(container)
	if err != nil {
		return err
	}
	cfg, err := loader.LoadFile(ctx)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	updated, err := helpers.ApplyConfigValue(cfg, key, raw)
	if err != nil {
		return err
	}
	if err := helpers.SaveConfigWithValidation(container, updated); err != nil {
		return err
	}

	value, err := helpers.LookupConfigValue(updated, key)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Set %s = %v in %s\n", key, value, loader.Path())
	return nil
}

func listConfigKeys(ctx context.Context, out io.Writer, container *app.Container) error {
	cfg, err := container.ConfigProvider.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	settings, err := helpers.ConfigSettings(cfg)
	if err != nil {
		return err
	}
	for _, s := range settings {
		fmt.Fprintf(out, "%s = %v\n", s.Key, s.Value)
	}
	return nil
}

func validateConfig(ctx context.Context, out io.Writer, container *app.Container) error {
	cfg, err := container.ConfigProvider.Load(ctx)
	if err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	if err := configapp.Validate(cfg); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	fmt.Fprintln(out, MsgConfigurationValid)
	return nil
}

func resetConfig(out io.Writer, container *app.Container) error {
	loader, err := helpers.GetConfigLoader(container)
	if err != nil {
		return err
	}
	if backup, err := loader.Backup(); err != nil {
		container.Logger.Warn("config backup skipped", map[string]interface{}{"error": err.Error()})
	} else {
		fmt.Fprintf(out, "Previous configuration saved to %s\n", backup)
	}

	defaults, err := loader.Reset()
	if err != nil {
		return fmt.Errorf("failed to reset configuration: %w", err)
	}
	container.Config = defaults
	fmt.Fprintf(out, "Configuration reset at %s\n", loader.Path())
	return nil
}

func diffConfig(ctx context.Context, out io.Writer, container *app.Container) error {
	current, err := container.ConfigProvider.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	diff := cmp.Diff(configinfra.DefaultConfig(), current)
	if diff == "" {
		fmt.Fprintln(out, MsgNoDifferencesFromDefault)
		return nil
	}
	fmt.Fprintln(out, "(-default +current)")
	fmt.Fprint(out, diff)
	return nil
}

func writeYAML(out io.Writer, v interface{}) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}
	_, err = out.Write(data)
	return err
}
