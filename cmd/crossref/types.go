package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/crossref/internal/domain/attribute"
)

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "List or toggle correlation types",
}

func init() {
	typesCmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "Show every correlation type and whether it is enabled",
			Args:  cobra.NoArgs,
			RunE:  runTypesList,
		},
		&cobra.Command{
			Use:   "enable <type>",
			Short: "Enable correlation of a type",
			Args:  cobra.ExactArgs(1),
			RunE:  toggleType(true),
		},
		&cobra.Command{
			Use:   "disable <type>",
			Short: "Disable correlation of a type",
			Args:  cobra.ExactArgs(1),
			RunE:  toggleType(false),
		},
	)
}

func runTypesList(cmd *cobra.Command, _ []string) error {
	client, logger, err := openClient(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	defer client.Close()

	enabled, err := client.Types(cmd.Context())
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tNAME\tSTATE")
	for _, t := range attribute.AllTypes() {
		state := "unset"
		if on, ok := enabled[t.String()]; ok {
			state = "disabled"
			if on {
				state = "enabled"
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", t, t.DisplayName(), state)
	}
	return tw.Flush()
}

func toggleType(enabled bool) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		client, logger, err := openClient(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()
		defer client.Close()

		if err := client.SetTypeEnabled(cmd.Context(), args[0], enabled); err != nil {
			return err
		}
		logger.Info("Correlation type updated", zap.String("type", args[0]), zap.Bool("enabled", enabled))
		return nil
	}
}
