package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var demCmd = &cobra.Command{
	Use:   "dem",
	Short: "Hand elevation-grid jobs to the DEM worker",
}

var demEnqueueCmd = &cobra.Command{
	Use:   "enqueue <boundary-id>",
	Short: "Enqueue a DEM generation job for a boundary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		svc, _, closer, err := initService(ctx)
		if err != nil {
			return err
		}
		defer closer()

		resolution, _ := cmd.Flags().GetFloat64("resolution")
		method, _ := cmd.Flags().GetString("method")

		job, msgID, err := svc.EnqueueDEM(ctx, args[0], resolution, method)
		if err != nil {
			return eris.Wrap(err, "dem enqueue")
		}
		fmt.Fprintf(os.Stderr, "Enqueued DEM job %s (message %s)\n", job.JobID, msgID)
		return printJSON(job)
	},
}

func init() {
	demEnqueueCmd.Flags().Float64("resolution", 0, "grid resolution in meters, 0.5-10 (default: configured value)")
	demEnqueueCmd.Flags().String("method", "", "interpolation method: tin, idw, kriging (default: configured value)")

	demCmd.AddCommand(demEnqueueCmd)
	rootCmd.AddCommand(demCmd)
}
