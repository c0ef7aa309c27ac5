package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/siteworks/siteworks-cli/internal/pipeline"
)

var contourCmd = &cobra.Command{
	Use:   "contour",
	Short: "Import and inspect contour lines",
	Long:  "Imports contour files (KML, GeoJSON, zipped shapefile, DXF), resolves elevations, clips lines to the boundary area, and refreshes terrain metadata.",
}

var contourImportCmd = &cobra.Command{
	Use:   "import <boundary-id> <file>...",
	Short: "Import contour lines for a boundary",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		svc, _, closer, err := initService(ctx)
		if err != nil {
			return err
		}
		defer closer()

		files := make([]pipeline.ContourFile, 0, len(args)-1)
		for _, path := range args[1:] {
			data, err := os.ReadFile(path)
			if err != nil {
				return eris.Wrapf(err, "read %s", path)
			}
			files = append(files, pipeline.ContourFile{Name: filepath.Base(path), Data: data})
		}

		result, meta, err := svc.ImportContours(ctx, args[0], files)
		if err != nil {
			return eris.Wrap(err, "contour import")
		}
		for _, w := range result.Warnings {
			fmt.Fprintf(os.Stderr, "warning: %s\n", w)
		}
		fmt.Fprintf(os.Stderr, "Imported %d contour lines (%.1f-%.1f m)\n",
			meta.ContourCount, meta.MinElevation, meta.MaxElevation)
		return printJSON(result.ElevationStats)
	},
}

var contourListCmd = &cobra.Command{
	Use:   "list <boundary-id>",
	Short: "List a boundary's contour lines",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		_, st, closer, err := initService(ctx)
		if err != nil {
			return err
		}
		defer closer()

		contours, err := st.ListContours(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "contour list")
		}
		if len(contours) == 0 {
			fmt.Fprintln(os.Stderr, "No contour lines found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tELEVATION (M)\tVERTICES\tSOURCE")
		for _, c := range contours {
			fmt.Fprintf(w, "%s\t%.1f\t%d\t%s\n",
				c.ID, c.ElevationM, c.Geometry.NumCoords(), c.SourceFile)
		}
		w.Flush() //nolint:errcheck
		return nil
	},
}

func init() {
	contourCmd.AddCommand(contourImportCmd)
	contourCmd.AddCommand(contourListCmd)
	rootCmd.AddCommand(contourCmd)
}
