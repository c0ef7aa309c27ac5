package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var buildableCmd = &cobra.Command{
	Use:   "buildable",
	Short: "Compute and inspect buildable area",
	Long:  "The buildable area is the boundary polygon minus the union of its buffered exclusion zones.",
}

var buildableComputeCmd = &cobra.Command{
	Use:   "compute <boundary-id>",
	Short: "Compute the buildable area for a boundary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		svc, _, closer, err := initService(ctx)
		if err != nil {
			return err
		}
		defer closer()

		force, _ := cmd.Flags().GetBool("force")
		result, err := svc.ComputeBuildable(ctx, args[0], force)
		if err != nil {
			return eris.Wrap(err, "buildable compute")
		}
		return printJSON(result)
	},
}

func init() {
	buildableComputeCmd.Flags().Bool("force", false, "recompute even when a stored result exists")

	buildableCmd.AddCommand(buildableComputeCmd)
	rootCmd.AddCommand(buildableCmd)
}
