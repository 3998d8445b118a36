// Package commands provides the CLI commands for the p4du tool.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/p4lang/p4c-sub009/internal/config"
	"github.com/p4lang/p4c-sub009/internal/log"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "p4du",
	Short: "p4du - def-use analysis for match-action programs",
	Long: `p4du computes reaching definitions over programs in YAML form, reports
uninitialized reads and accesses to invalid headers, and removes dead writes.

Commands:
  check       Analyze programs and print a report
  dump        Print a program after dead-write elimination
  init        Create a configuration file interactively

Use "p4du [command] --help" for more information about a command.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return RootCmd.Execute()
}

func init() {
	RootCmd.PersistentFlags().String("config", "", "Config file path (default: layered ~/.p4du and ./.p4du)")
	RootCmd.PersistentFlags().Bool("verbose", false, "Verbose logging")
	RootCmd.PersistentFlags().Bool("log-json", false, "Log in JSON format")

	RootCmd.AddCommand(checkCmd)
	RootCmd.AddCommand(dumpCmd)
	RootCmd.AddCommand(initCmd)
}

// loadConfig loads the configuration selected by the persistent flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	var cfg *config.Config
	var err error
	if path != "" {
		cfg, err = config.LoadFromFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose, _ = cmd.Flags().GetBool("verbose")
	}
	if cmd.Flags().Changed("log-json") {
		cfg.LogJSON, _ = cmd.Flags().GetBool("log-json")
	}
	return cfg, nil
}

// newLogger returns a stderr logger configured from cfg.
func newLogger(cfg *config.Config) log.Logger {
	level := log.WarnLevel
	if cfg.Verbose {
		level = log.DebugLevel
	}
	return log.New(log.LoggerConfig{
		Level:      level,
		JSONOutput: cfg.LogJSON,
		Output:     os.Stderr,
	})
}
