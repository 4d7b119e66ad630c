package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var lookupFlags struct {
	typ         string
	value       string
	excludeCase string
}

var lookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "Show prior occurrences of a value and how it would be classified",
	Args:  cobra.NoArgs,
	RunE:  runLookup,
}

func init() {
	lookupCmd.Flags().StringVar(&lookupFlags.typ, "type", "", "correlation type (e.g. files, email, mac)")
	lookupCmd.Flags().StringVar(&lookupFlags.value, "value", "", "attribute value")
	lookupCmd.Flags().StringVar(&lookupFlags.excludeCase, "exclude-case", "", "case uuid treated as the current case")
	_ = lookupCmd.MarkFlagRequired("type")
	_ = lookupCmd.MarkFlagRequired("value")
}

func runLookup(cmd *cobra.Command, _ []string) error {
	client, logger, err := openClient(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	defer client.Close()

	res, err := client.Lookup(cmd.Context(), lookupFlags.typ, lookupFlags.value, lookupFlags.excludeCase)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
