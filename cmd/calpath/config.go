package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/llama-alma/calpath/pkg/config"
)

func NewConfigCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "config",
		Short:   "Show the effective configuration",
		GroupID: gConfig,
		Long: `Show the effective configuration.

Values missing from the config file are shown with their defaults.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := loadConfig()
			if err != nil {
				return err
			}

			if asJSON {
				raw, err := config.NewRawFileConfigFromConfig(conf)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(raw)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, bold("Configuration (%s):", conf.Path()))
			fmt.Fprintf(out, "  Root: %s\n", bold("%s", conf.Root()))
			fmt.Fprintf(out, "  Targets: %s\n", bold("%d", len(conf.Targets())))
			fmt.Fprintf(out, "  Search for: %s\n", bold("%s", conf.TargetDir()))
			fmt.Fprintf(out, "  Max descents per target: %s\n", bold("%d", conf.MaxDepth()))
			fmt.Fprintf(out, "  Follow symbolic links: %s\n", bool2Text(conf.FollowSymlinks()))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")

	cmd.AddCommand(
		newConfigInitCommand(),
		newConfigSetCommand(),
		&cobra.Command{
			Use:   "reset",
			Short: "Clear the config file so every value takes its default",
			Args:  cobra.NoArgs,
			RunE: func(_ *cobra.Command, _ []string) error {
				return updateConfig(func(conf *config.File) error {
					conf.Reset()
					return nil
				}, "successfully reset config")
			},
		},
	)

	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the effective configuration to the config file",
		Long: `Write the effective configuration to the config file.

Every value, including defaults, is written explicitly so the file can be
edited by hand.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if _, err := os.Stat(configPath); err == nil && !force {
				return fmt.Errorf("config file %s already exists, use --force to overwrite", configPath)
			}

			conf, err := loadConfig()
			if err != nil {
				return err
			}
			raw, err := config.NewRawFileConfigFromConfig(conf)
			if err != nil {
				return err
			}

			out := config.NewFileFromConfig(raw, configPath)
			if err := out.Save(); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			logrus.Infof("successfully wrote config to %s", configPath)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing config file")

	return cmd
}

func newConfigSetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set a search option",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "target-dir NAME",
			Short: "Set the directory name that ends a search",
			Args:  cobra.ExactArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				return updateConfig(func(conf *config.File) error {
					return conf.SetTargetDir(args[0])
				}, "successfully set target directory")
			},
		},
		&cobra.Command{
			Use:   "max-depth N",
			Short: "Set the maximum number of descents per target",
			Args:  cobra.ExactArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				depth, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid max depth: %v", err)
				}
				return updateConfig(func(conf *config.File) error {
					return conf.SetMaxDepth(depth)
				}, "successfully set max depth")
			},
		},
		newEnableDisableCommand(
			"follow-symlinks",
			"following symbolic links to directories",
			func(conf *config.File, b bool) { conf.SetFollowSymlinks(b) },
		),
	)

	return cmd
}

func newEnableDisableCommand(use, short string, set func(*config.File, bool)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: "Enable or disable " + short,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "enable",
			Short: "Enable " + short,
			Args:  cobra.NoArgs,
			RunE: func(_ *cobra.Command, _ []string) error {
				return updateConfig(func(conf *config.File) error {
					set(conf, true)
					return nil
				}, "successfully enabled "+use)
			},
		},
		&cobra.Command{
			Use:   "disable",
			Short: "Disable " + short,
			Args:  cobra.NoArgs,
			RunE: func(_ *cobra.Command, _ []string) error {
				return updateConfig(func(conf *config.File) error {
					set(conf, false)
					return nil
				}, "successfully disabled "+use)
			},
		},
	)

	return cmd
}
