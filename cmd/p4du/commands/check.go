package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/p4lang/p4c-sub009/internal/config"
	"github.com/p4lang/p4c-sub009/pkg/diag"
	"github.com/p4lang/p4c-sub009/pkg/loader"
	"github.com/p4lang/p4c-sub009/pkg/report"
	"github.com/p4lang/p4c-sub009/pkg/simplify"
)

// errDiagnostics makes the command exit with a failure status after the
// report has been printed.
var errDiagnostics = errors.New("errors were reported")

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check <program.yaml>...",
	Short: "Analyze programs and print a report",
	Long: `Runs the write-set analysis and the def-use checker over every control,
parser, action and function of each program, then eliminates dead writes.
Prints one report per program. Exits with a failure status if any error
was reported, including warnings escalated with --werror.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := applyCheckFlags(cmd, cfg); err != nil {
			return err
		}
		format, err := report.ParseFormat(cfg.Format)
		if err != nil {
			return err
		}
		withSource, _ := cmd.Flags().GetBool("source")

		failed := false
		for _, path := range args {
			res, err := analyze(cmd, cfg, path)
			if err != nil {
				return err
			}
			r, err := report.New(res, withSource)
			if err != nil {
				return err
			}
			if err := report.Write(cmd.OutOrStdout(), r, format); err != nil {
				return fmt.Errorf("writing report: %w", err)
			}
			if diag.HasErrors(res.Diagnostics) {
				failed = true
			}
		}
		if failed {
			return errDiagnostics
		}
		return nil
	},
}

func init() {
	checkCmd.Flags().StringP("format", "f", "", "Output format: text, json, yaml or msgpack")
	checkCmd.Flags().IntP("jobs", "j", 0, "Number of units analyzed concurrently")
	checkCmd.Flags().Bool("no-eliminate", false, "Do not remove dead writes")
	checkCmd.Flags().Int("max-passes", 0, "Maximum number of elimination rounds")
	checkCmd.Flags().Bool("werror", false, "Report warnings as errors")
	checkCmd.Flags().StringSlice("disable", nil, "Diagnostic categories to suppress")
	checkCmd.Flags().Bool("source", false, "Include the rewritten program in the report")
}

// applyCheckFlags overlays explicitly set flags onto cfg.
func applyCheckFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("format") {
		cfg.Format, _ = flags.GetString("format")
	}
	if flags.Changed("jobs") {
		cfg.Parallelism, _ = flags.GetInt("jobs")
	}
	if flags.Changed("no-eliminate") {
		noEliminate, _ := flags.GetBool("no-eliminate")
		cfg.Eliminate = !noEliminate
	}
	if flags.Changed("max-passes") {
		cfg.MaxPasses, _ = flags.GetInt("max-passes")
	}
	if flags.Changed("werror") {
		cfg.WarningsAsErrors, _ = flags.GetBool("werror")
	}
	if flags.Changed("disable") {
		cfg.Disable, _ = flags.GetStringSlice("disable")
	}
	return cfg.Validate()
}

// analyze loads one program and runs the pipeline over it.
func analyze(cmd *cobra.Command, cfg *config.Config, path string) (*simplify.Result, error) {
	prog, info, err := loader.Load(path)
	if err != nil {
		return nil, err
	}
	disabled, err := cfg.DisabledCategories()
	if err != nil {
		return nil, err
	}
	res, err := simplify.Run(cmd.Context(), prog, info, simplify.Options{
		Parallelism:      cfg.Parallelism,
		Eliminate:        cfg.Eliminate,
		MaxPasses:        cfg.MaxPasses,
		Disabled:         disabled,
		WarningsAsErrors: cfg.WarningsAsErrors,
		Logger:           newLogger(cfg),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return res, nil
}
