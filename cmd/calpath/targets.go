package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/llama-alma/calpath/pkg/config"
)

func NewTargetsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "targets",
		Short:   "List configured targets",
		GroupID: gConfig,
		Long: `List configured targets.

Targets are searched in the order listed here. Use the subcommands to change
the list; changes are written to the config file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := loadConfig()
			if err != nil {
				return err
			}

			for _, t := range conf.Targets() {
				fmt.Fprintln(cmd.OutOrStdout(), t)
			}
			return nil
		},
	}

	cmd.AddCommand(
		newTargetsEditCommand("add NAME...", "Append targets to the list", func(conf *config.File, args []string) error {
			return conf.AddTargets(args...)
		}),
		newTargetsEditCommand("remove NAME...", "Remove targets from the list", func(conf *config.File, args []string) error {
			return conf.RemoveTargets(args...)
		}),
		newTargetsEditCommand("set NAME...", "Replace the target list", func(conf *config.File, args []string) error {
			return conf.SetTargets(args)
		}),
		&cobra.Command{
			Use:   "reset",
			Short: "Restore the default target list",
			Args:  cobra.NoArgs,
			RunE: func(_ *cobra.Command, _ []string) error {
				return updateConfig(func(conf *config.File) error {
					conf.ResetTargets()
					return nil
				}, "successfully restored the default targets")
			},
		},
	)

	return cmd
}

func newTargetsEditCommand(use, short string, edit func(*config.File, []string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return updateConfig(func(conf *config.File) error {
				return edit(conf, args)
			}, "successfully updated targets")
		},
	}
}

// updateConfig loads the config, applies fn and saves the result.
func updateConfig(fn func(*config.File) error, msg string) error {
	conf, err := loadConfig()
	if err != nil {
		return err
	}

	if err := fn(conf); err != nil {
		return err
	}

	if err := conf.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	logrus.WithFields(conf.LogrusFields()).Info(msg)
	return nil
}
