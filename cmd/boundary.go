package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/siteworks/siteworks-cli/internal/model"
)

var boundaryCmd = &cobra.Command{
	Use:   "boundary",
	Short: "Manage property boundaries",
	Long:  "Import boundary files (KML, GeoJSON, zipped shapefile, DXF), list, inspect, and delete property boundaries.",
}

var boundaryImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a property boundary from a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		svc, _, closer, err := initService(ctx)
		if err != nil {
			return err
		}
		defer closer()

		projectID, _ := cmd.Flags().GetString("project")
		data, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrapf(err, "read %s", args[0])
		}

		b, result, err := svc.ImportBoundary(ctx, projectID, filepath.Base(args[0]), data)
		if err != nil {
			return eris.Wrap(err, "boundary import")
		}

		fmt.Fprintf(os.Stderr, "Imported boundary %s (%s)\n", b.ID, b.Name)
		return printJSON(result)
	},
}

var boundaryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List property boundaries",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		_, st, closer, err := initService(ctx)
		if err != nil {
			return err
		}
		defer closer()

		projectID, _ := cmd.Flags().GetString("project")
		boundaries, err := st.ListBoundaries(ctx, projectID)
		if err != nil {
			return eris.Wrap(err, "boundary list")
		}
		if len(boundaries) == 0 {
			fmt.Fprintln(os.Stderr, "No boundaries found.")
			return nil
		}

		formatBoundaryList(boundaries)
		return nil
	},
}

var boundaryShowCmd = &cobra.Command{
	Use:   "show <boundary-id>",
	Short: "Show a boundary's metrics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		_, st, closer, err := initService(ctx)
		if err != nil {
			return err
		}
		defer closer()

		b, err := st.GetBoundary(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "boundary show")
		}
		return printJSON(b)
	},
}

var boundaryDeleteCmd = &cobra.Command{
	Use:   "delete <boundary-id>",
	Short: "Delete a boundary and everything derived from it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		_, st, closer, err := initService(ctx)
		if err != nil {
			return err
		}
		defer closer()

		if err := st.DeleteBoundary(ctx, args[0]); err != nil {
			return eris.Wrap(err, "boundary delete")
		}
		fmt.Fprintf(os.Stderr, "Deleted boundary %s (zones, contours, and buildable area removed)\n", args[0])
		return nil
	},
}

func formatBoundaryList(boundaries []model.Boundary) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPROJECT\tNAME\tACRES\tPERIMETER (M)\tCREATED")
	for _, b := range boundaries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%.0f\t%s\n",
			b.ID, b.ProjectID, b.Name, b.AreaAcres, b.PerimeterM,
			b.CreatedAt.Format("2006-01-02 15:04"))
	}
	w.Flush() //nolint:errcheck
}

func init() {
	boundaryImportCmd.Flags().String("project", "default", "project id the boundary belongs to")
	boundaryListCmd.Flags().String("project", "", "filter by project id")

	boundaryCmd.AddCommand(boundaryImportCmd)
	boundaryCmd.AddCommand(boundaryListCmd)
	boundaryCmd.AddCommand(boundaryShowCmd)
	boundaryCmd.AddCommand(boundaryDeleteCmd)
	rootCmd.AddCommand(boundaryCmd)
}
