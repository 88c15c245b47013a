package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewAssessCmd builds the assess command group: score writes, reads, and
// aggregate queries against the local state file.
func NewAssessCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assess",
		Short: "Record and query criterion scores",
	}
	cmd.AddCommand(
		newAssessSetCmd(),
		newAssessRemoveCmd(),
		newAssessAggregateCmd(),
		newAssessStatusCmd(),
	)
	return cmd
}

// scoreFlags are shared by the score-addressing subcommands.  An empty
// threat selects the asset-assessment context.
type scoreFlags struct {
	Threat    string
	Asset     int
	Criterion int
}

func (f *scoreFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.Threat, "threat", "t", "", "threat name (empty for asset context)")
	cmd.Flags().IntVarP(&f.Asset, "asset", "a", 0, "asset ordinal")
	cmd.Flags().IntVar(&f.Criterion, "criterion", 0, "criterion index")
	_ = cmd.MarkFlagRequired("asset")
}

func newAssessSetCmd() *cobra.Command {
	flags := &scoreFlags{}
	var score int

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Record one criterion score (1-5)",
		Example: `  spacerisk assess set --threat Jamming --asset 7 --criterion 2 --score 4
  spacerisk assess set --asset 7 --criterion 0 --score 3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd)
			if err != nil {
				return err
			}
			if err := rt.assessment.SetScore(cmd.Context(), flags.Threat, flags.Asset, flags.Criterion, score); err != nil {
				return err
			}
			if err := rt.save(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "score recorded: asset %d criterion %d = %d\n",
				flags.Asset, flags.Criterion, score)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVarP(&score, "score", "s", 0, "score value (1-5)")
	_ = cmd.MarkFlagRequired("criterion")
	_ = cmd.MarkFlagRequired("score")
	return cmd
}

func newAssessRemoveCmd() *cobra.Command {
	flags := &scoreFlags{}

	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Delete one recorded score",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd)
			if err != nil {
				return err
			}
			removed := rt.assessment.RemoveScore(cmd.Context(), flags.Threat, flags.Asset, flags.Criterion)
			if !removed {
				fmt.Fprintln(cmd.OutOrStdout(), "no score recorded at that position")
				return nil
			}
			if err := rt.save(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "score removed")
			return nil
		},
	}
	flags.register(cmd)
	_ = cmd.MarkFlagRequired("criterion")
	return cmd
}

func newAssessAggregateCmd() *cobra.Command {
	var threat string
	var asset int

	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Show the likelihood and impact aggregates for one asset",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd)
			if err != nil {
				return err
			}
			agg := rt.assessment.Aggregate(threat, asset)

			return printResult(cmd, rt.cli.Output, agg, func() {
				out := cmd.OutOrStdout()
				if !agg.Likelihood.Defined {
					fmt.Fprintln(out, "likelihood: (no scores)")
				} else {
					fmt.Fprintf(out, "likelihood: %.3f (%s)\n", agg.Likelihood.Value, agg.Likelihood.Category)
				}
				if !agg.Impact.Defined {
					fmt.Fprintln(out, "impact:     (no scores)")
				} else {
					fmt.Fprintf(out, "impact:     %.3f (%s)\n", agg.Impact.Value, agg.Impact.Category)
				}
			})
		},
	}
	cmd.Flags().StringVarP(&threat, "threat", "t", "", "threat name (empty for asset context)")
	cmd.Flags().IntVarP(&asset, "asset", "a", 0, "asset ordinal")
	_ = cmd.MarkFlagRequired("asset")
	return cmd
}

func newAssessStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "List analyzed threats and assets in the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd)
			if err != nil {
				return err
			}

			threats := rt.assessment.AnalyzedThreats()
			assetOrdinals := rt.assessment.AnalyzedAssets("")
			status := map[string]interface{}{
				"scores":           rt.store.Len(),
				"threats":          threats,
				"asset_ordinals":   assetOrdinals,
				"applied_controls": rt.engine.Applied(),
			}

			return printResult(cmd, rt.cli.Output, status, func() {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "recorded scores:  %d\n", rt.store.Len())
				fmt.Fprintf(out, "analyzed threats: %v\n", threats)
				fmt.Fprintf(out, "asset context:    %v\n", assetOrdinals)
				fmt.Fprintf(out, "applied controls: %v\n", rt.engine.Applied())
			})
		},
	}
	return cmd
}
