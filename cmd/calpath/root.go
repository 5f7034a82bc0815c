package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/llama-alma/calpath/pkg/config"
)

func NewRootCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "root [path]",
		Short:   "Print or set the data root",
		GroupID: gConfig,
		Long: `Print or set the data root.

The root holds one directory per target. Without an argument the current root
is printed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				conf, err := loadConfig()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), conf.Root())
				return nil
			}

			return updateConfig(func(conf *config.File) error {
				return conf.SetRoot(args[0])
			}, "successfully set root")
		},
	}
}
