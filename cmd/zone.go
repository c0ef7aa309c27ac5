package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/siteworks/siteworks-cli/internal/model"
	"github.com/siteworks/siteworks-cli/internal/parser"
)

var zoneCmd = &cobra.Command{
	Use:   "zone",
	Short: "Manage exclusion zones",
	Long:  "Add, list, re-buffer, and delete regulatory exclusion zones within a boundary. Every change recomputes the buildable area.",
}

var zoneAddCmd = &cobra.Command{
	Use:   "add <boundary-id> <file>",
	Short: "Add an exclusion zone from a geometry file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		svc, _, closer, err := initService(ctx)
		if err != nil {
			return err
		}
		defer closer()

		data, err := os.ReadFile(args[1])
		if err != nil {
			return eris.Wrapf(err, "read %s", args[1])
		}
		format, err := parser.Detect(filepath.Base(args[1]), data)
		if err != nil {
			return err
		}
		polygon, attrs, err := parser.ParseBoundary(data, format)
		if err != nil {
			return err
		}

		name, _ := cmd.Flags().GetString("name")
		if name == "" {
			name = zoneNameFromAttrs(attrs, args[1])
		}

		z := &model.ExclusionZone{
			BoundaryID: args[0],
			Name:       name,
			Geometry:   polygon,
		}
		if typeStr, _ := cmd.Flags().GetString("type"); typeStr != "" {
			zt, err := model.ParseZoneType(typeStr)
			if err != nil {
				return err
			}
			z.Type = zt
		} else {
			z.Type = model.InferZoneType(name)
		}

		var bufferM *float64
		if cmd.Flags().Changed("buffer") {
			v, _ := cmd.Flags().GetFloat64("buffer")
			bufferM = &v
		}

		result, warnings, err := svc.CreateZone(ctx, z, bufferM)
		if err != nil {
			return eris.Wrap(err, "zone add")
		}
		for _, w := range warnings {
			fmt.Fprintf(os.Stderr, "warning: %s\n", w)
		}
		fmt.Fprintf(os.Stderr, "Created %s zone %s (buffer %.1f m)\n", z.Type, z.ID, z.BufferDistanceM)
		return printJSON(result)
	},
}

var zoneListCmd = &cobra.Command{
	Use:   "list <boundary-id>",
	Short: "List a boundary's exclusion zones",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		_, st, closer, err := initService(ctx)
		if err != nil {
			return err
		}
		defer closer()

		zones, err := st.ListZones(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "zone list")
		}
		if len(zones) == 0 {
			fmt.Fprintln(os.Stderr, "No exclusion zones found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tTYPE\tBUFFER (M)\tAREA (M2)")
		for _, z := range zones {
			fmt.Fprintf(w, "%s\t%s\t%s\t%.1f\t%.1f\n",
				z.ID, z.Name, z.Type, z.BufferDistanceM, z.AreaM2)
		}
		w.Flush() //nolint:errcheck
		return nil
	},
}

var zoneSetBufferCmd = &cobra.Command{
	Use:   "set-buffer <zone-id> <meters>",
	Short: "Change a zone's buffer distance",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		svc, _, closer, err := initService(ctx)
		if err != nil {
			return err
		}
		defer closer()

		meters, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return eris.Wrapf(err, "parse buffer distance %q", args[1])
		}

		result, warnings, err := svc.UpdateZoneBuffer(ctx, args[0], meters)
		if err != nil {
			return eris.Wrap(err, "zone set-buffer")
		}
		for _, w := range warnings {
			fmt.Fprintf(os.Stderr, "warning: %s\n", w)
		}
		return printJSON(result)
	},
}

var zoneDeleteCmd = &cobra.Command{
	Use:   "delete <zone-id>",
	Short: "Delete an exclusion zone",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		svc, _, closer, err := initService(ctx)
		if err != nil {
			return err
		}
		defer closer()

		if err := svc.DeleteZone(ctx, args[0]); err != nil {
			return eris.Wrap(err, "zone delete")
		}
		fmt.Fprintf(os.Stderr, "Deleted zone %s\n", args[0])
		return nil
	},
}

func zoneNameFromAttrs(attrs map[string]any, path string) string {
	for _, key := range []string{"name", "Name", "NAME"} {
		if v, ok := attrs[key].(string); ok && v != "" {
			return v
		}
	}
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}

func init() {
	zoneAddCmd.Flags().String("name", "", "zone name (defaults to the file's name attribute)")
	zoneAddCmd.Flags().String("type", "", "zone type: wetland, protected_area, easement, buffer, setback, custom (default: inferred from name)")
	zoneAddCmd.Flags().Float64("buffer", 0, "buffer distance in meters (default: the type's regulatory default)")

	zoneCmd.AddCommand(zoneAddCmd)
	zoneCmd.AddCommand(zoneListCmd)
	zoneCmd.AddCommand(zoneSetBufferCmd)
	zoneCmd.AddCommand(zoneDeleteCmd)
	rootCmd.AddCommand(zoneCmd)
}
