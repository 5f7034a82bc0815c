package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/llama-alma/calpath/pkg/config"
	"github.com/llama-alma/calpath/pkg/resolver"
)

var (
	logLevel   = "info"
	configPath = defaultConfigPath()
)

var (
	gBasic        = "Basic:"
	gConfig       = "Config:"
	commandGroups = []string{
		gBasic,
		gConfig,
	}
)

func defaultConfigPath() string {
	if p := os.Getenv("CALPATH_CONFIG"); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "calpath.yaml"
	}
	return filepath.Join(dir, "calpath", "config.yaml")
}

func setupLogger() error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{})
	if term.IsTerminal(int(os.Stderr.Fd())) {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.Kitchen,
		})
	}

	return nil
}

func loadConfig() (*config.File, error) {
	conf, err := config.NewFile(configPath)
	if err != nil {
		return nil, err
	}
	logrus.WithFields(conf.LogrusFields()).WithField("path", configPath).Debug("config loaded")
	return conf, nil
}

func handleCmdError(err error) {
	if errors.Is(err, resolver.ErrFatalIO) && errors.Is(err, os.ErrPermission) {
		fmt.Fprintln(os.Stderr, "\nError: Permission Denied")
		fmt.Fprintln(os.Stderr, "  - calpath needs read access to every directory it descends into")
		fmt.Fprintln(os.Stderr, "  - Check the permissions of the path above, or run as a user in the data group")
	} else if errors.Is(err, ErrUnresolvedTargets) {
		fmt.Fprintln(os.Stderr, "\nSome targets were not resolved. See the warnings above for details.")
	}
}

func main() {
	cmd := NewCommand()
	if err := cmd.Execute(); err != nil {
		handleCmdError(err)
		os.Exit(1)
	}
}

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calpath",
		Short: "calpath locates calibrated ALMA data directories",
		Long: `calpath locates the calibrated data directory of each observation target.

For every target it starts at <root>/<target> and descends through directories
that have a single subdirectory until it finds one named "calibrated".
Targets that are missing or whose layout is ambiguous are reported and skipped.`,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return setupLogger()
		},
	}

	globalFlags := cmd.PersistentFlags()
	globalFlags.StringVarP(&logLevel, "log-level", "l", "info", "log level (trace, debug, info, warn, error, fatal, panic)")
	globalFlags.StringVar(&configPath, "config", defaultConfigPath(), "config file path (.json, .yaml or .yml)")

	for _, i := range commandGroups {
		cmd.AddGroup(&cobra.Group{
			ID:    i,
			Title: i,
		})
	}

	cmd.AddCommand(
		NewVersionCommand(),
		NewResolveCommand(),
		NewTargetsCommand(),
		NewRootCommand(),
		NewConfigCommand(),
	)

	return cmd
}
