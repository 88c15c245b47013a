package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// NewControlCmd builds the control command group.
func NewControlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "control",
		Short: "Apply, remove, and list security controls",
	}
	cmd.AddCommand(
		newControlApplyCmd(),
		newControlRemoveCmd(),
		newControlListCmd(),
		newControlClearCmd(),
	)
	return cmd
}

func newControlApplyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply <control-id>",
		Short: "Apply a control, shifting matched scores down by one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd)
			if err != nil {
				return err
			}
			effect, err := rt.engine.Apply(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := rt.save(); err != nil {
				return err
			}
			return printResult(cmd, rt.cli.Output, effect, func() {
				fmt.Fprintf(cmd.OutOrStdout(),
					"applied %s: %d threats, %d criteria, %d assets, %d scores shifted\n",
					effect.ControlID, len(effect.Threats), len(effect.Criteria),
					len(effect.Assets), effect.Touched)
			})
		},
	}
	return cmd
}

func newControlRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove <control-id>",
		Short: "Remove an applied control, shifting its scores back up",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd)
			if err != nil {
				return err
			}
			effect, err := rt.engine.Remove(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := rt.save(); err != nil {
				return err
			}
			return printResult(cmd, rt.cli.Output, effect, func() {
				fmt.Fprintf(cmd.OutOrStdout(), "removed %s: %d scores shifted\n",
					effect.ControlID, effect.Touched)
			})
		},
	}
	return cmd
}

func newControlListCmd() *cobra.Command {
	var threat string
	var appliedOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog controls, optionally filtered by threat",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			items, err := rt.catalogs.Controls().List(ctx)
			if threat != "" {
				items, err = rt.catalogs.Controls().ForThreat(ctx, threat)
			}
			if err != nil {
				return err
			}

			type controlRow struct {
				ID      string `json:"id"`
				Title   string `json:"title"`
				Segment string `json:"segment"`
				Applied bool   `json:"applied"`
			}
			rows := make([]controlRow, 0, len(items))
			for _, ctl := range items {
				applied := rt.engine.IsApplied(ctl.ID)
				if appliedOnly && !applied {
					continue
				}
				rows = append(rows, controlRow{ID: ctl.ID, Title: ctl.Title, Segment: ctl.Segment, Applied: applied})
			}

			return printResult(cmd, rt.cli.Output, rows, func() {
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tTITLE\tSEGMENT\tAPPLIED")
				for _, row := range rows {
					applied := ""
					if row.Applied {
						applied = "yes"
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", row.ID, row.Title, row.Segment, applied)
				}
				w.Flush()
			})
		},
	}
	cmd.Flags().StringVarP(&threat, "threat", "t", "", "only controls addressing this threat")
	cmd.Flags().BoolVar(&appliedOnly, "applied", false, "only currently applied controls")
	return cmd
}

func newControlClearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every applied control",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd)
			if err != nil {
				return err
			}
			if err := rt.engine.ClearAll(cmd.Context()); err != nil {
				return err
			}
			if err := rt.save(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "all controls removed")
			return nil
		},
	}
	return cmd
}
