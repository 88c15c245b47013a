package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/orbitsec/spacerisk/internal/application/rollup"
)

// NewRollupCmd builds the rollup command: one threat when named, the full
// summary table otherwise.
func NewRollupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rollup [threat]",
		Short: "Compute per-threat risk rollups",
		Args:  cobra.MaximumNArgs(1),
		Example: `  spacerisk rollup
  spacerisk rollup Jamming -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd)
			if err != nil {
				return err
			}

			if len(args) == 1 {
				result, err := rt.rollup.ForThreat(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printResult(cmd, rt.cli.Output, result, func() {
					printRollupTable(cmd, []rollup.Result{result})
				})
			}

			results, err := rt.rollup.Summary(cmd.Context())
			if err != nil {
				return err
			}
			return printResult(cmd, rt.cli.Output, results, func() {
				printRollupTable(cmd, results)
			})
		},
	}
	return cmd
}

func printRollupTable(cmd *cobra.Command, results []rollup.Result) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "THREAT\tRISK\tLIKELIHOOD\tIMPACT\tWORST ASSET")
	for _, r := range results {
		if r.Empty {
			fmt.Fprintf(w, "%s\t-\t-\t-\t-\n", r.Threat)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			r.Threat, r.Risk, r.Likelihood, r.Impact, r.AssetLabel)
	}
	w.Flush()
}
