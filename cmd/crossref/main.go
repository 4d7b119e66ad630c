// crossref serves the cross-case correlation engine and its operator tools.
//
// Usage:
//
//	crossref serve
//	crossref migrate up|down|version|force <v>|steps <n>
//	crossref types list|enable <type>|disable <type>
//	crossref lookup --type=<type> --value=<value> [--exclude-case=<uuid>]
//	crossref version
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/crossref/internal/config"
	logpkg "github.com/kailas-cloud/crossref/internal/logger"
	"github.com/kailas-cloud/crossref/internal/version"
)

var envFlag string

var rootCmd = &cobra.Command{
	Use:   "crossref",
	Short: "Cross-case correlation and notability scoring",
	Long: "crossref records correlation attributes of ingested items in a shared store\n" +
		"and flags items previously seen or tagged notable in other cases.",
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFlag, "env", "", "config environment (default: $ENV or local)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(typesCmd)
	rootCmd.AddCommand(lookupCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.Version = version.String()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build metadata",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "crossref %s\n", version.String())
	},
}

// environment resolves the config environment from --env or $ENV.
func environment() string {
	if envFlag != "" {
		return envFlag
	}
	return config.GetEnv()
}

// bootstrap loads the config and builds the logger shared by every command.
func bootstrap() (config.Config, *zap.Logger, error) {
	env := environment()
	cfg, err := config.Load(env)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("create logger: %w", err)
	}
	return cfg, logger, nil
}
