package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/llama-alma/calpath/pkg/config"
	"github.com/llama-alma/calpath/pkg/resolver"
)

const (
	outputText   = "text"
	outputJSON   = "json"
	outputPython = "python"
)

func NewResolveCommand() *cobra.Command {
	var (
		root    string
		output  string
		summary bool
		strict  bool
	)

	cmd := &cobra.Command{
		Use:     "resolve [target...]",
		Short:   "Locate the calibrated directory of each target",
		GroupID: gBasic,
		Long: `Locate the calibrated directory of each target.

Targets default to the configured list. For each target the search starts at
<root>/<target>. If the directory contains "calibrated", that path is the
result. If it has exactly one subdirectory, the search continues there.
Otherwise the target is reported as missing or ambiguous and skipped.

Resolved paths are printed once all targets are processed, in target order.
Warnings for skipped targets are logged as they happen.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch output {
			case outputText, outputJSON, outputPython:
			default:
				return fmt.Errorf("invalid output format %q, must be one of: %s, %s, %s", output, outputText, outputJSON, outputPython)
			}

			for _, t := range args {
				if err := config.ValidateTarget(t); err != nil {
					return err
				}
			}

			conf, err := loadConfig()
			if err != nil {
				return err
			}

			targets := args
			if len(targets) == 0 {
				targets = conf.Targets()
			}
			if root == "" {
				root = conf.Root()
			}

			logrus.WithFields(logrus.Fields{
				"root":    root,
				"targets": len(targets),
			}).Debug("resolving targets")

			r := resolver.New(root, conf.ResolverOptions(logrus.StandardLogger()))
			report, err := r.ResolveAll(targets)
			if err != nil {
				return err
			}

			if summary {
				printSummary(cmd, report)
			}

			switch output {
			case outputJSON:
				err = printReportJSON(cmd, report)
			case outputPython:
				printReportPython(cmd, report)
			default:
				printReportText(cmd, report)
			}
			if err != nil {
				return err
			}

			unresolved := report.Unresolved()
			if len(unresolved) > 0 {
				logrus.Infof("resolved %d of %d targets", len(report.Outcomes)-len(unresolved), len(report.Outcomes))
				if strict {
					return fmt.Errorf("%w: %d of %d", ErrUnresolvedTargets, len(unresolved), len(report.Outcomes))
				}
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&root, "root", "", "root directory holding one directory per target (default from config)")
	cmd.Flags().StringVarP(&output, "output", "o", outputText, "output format (text, json, python)")
	cmd.Flags().BoolVar(&summary, "summary", false, "print a per-target overview to stderr")
	cmd.Flags().BoolVar(&strict, "strict", false, "exit with an error if any target is not resolved")

	return cmd
}
