package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/p4lang/p4c-sub009/pkg/ir"
)

// dumpCmd represents the dump command
var dumpCmd = &cobra.Command{
	Use:   "dump <program.yaml>",
	Short: "Print a program after dead-write elimination",
	Long: `Loads a program, runs the analysis pipeline and prints the rewritten
program as source text. Diagnostics go to stderr. Use --raw to print the
program as loaded.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		raw, _ := cmd.Flags().GetBool("raw")
		cfg.Eliminate = !raw

		res, err := analyze(cmd, cfg, args[0])
		if err != nil {
			return err
		}
		for _, d := range res.Diagnostics {
			fmt.Fprintln(cmd.ErrOrStderr(), d)
		}
		return ir.Fprint(cmd.OutOrStdout(), res.Program)
	},
}

func init() {
	dumpCmd.Flags().Bool("raw", false, "Print the program without eliminating dead writes")
}
