package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/suburbmates/directory-cli/internal/geo"
)

var geoCmd = &cobra.Command{
	Use:   "geo",
	Short: "Suburb boundary utilities",
}

var geoLoadCmd = &cobra.Command{
	Use:   "load-suburbs <shapefile>",
	Short: "Validate a suburb boundary shapefile",
	Long: `Load a suburb boundary shapefile and report what it contains.

The index is built in memory at startup from geo.suburb_shapefile, so
this command exists to validate a file before configuring it.`,
	Args: cobra.ExactArgs(1),
	RunE: runGeoLoad,
}

var geoLocateCmd = &cobra.Command{
	Use:   "locate",
	Short: "Find the suburb containing a coordinate",
	RunE:  runGeoLocate,
}

func init() {
	geoLoadCmd.Flags().String("name-field", "", "suburb name attribute (default: auto-detect)")

	f := geoLocateCmd.Flags()
	f.Float64("lon", 0, "longitude (required)")
	f.Float64("lat", 0, "latitude (required)")
	_ = geoLocateCmd.MarkFlagRequired("lon")
	_ = geoLocateCmd.MarkFlagRequired("lat")

	geoCmd.AddCommand(geoLoadCmd, geoLocateCmd)
	rootCmd.AddCommand(geoCmd)
}

func runGeoLoad(cmd *cobra.Command, args []string) error {
	nameField, _ := cmd.Flags().GetString("name-field")

	idx, err := geo.LoadSuburbs(args[0], nameField)
	if err != nil {
		return eris.Wrapf(err, "geo load-suburbs %s", args[0])
	}

	fmt.Printf("Loaded %d suburb boundaries from %s\n", idx.Len(), args[0])
	return nil
}

func runGeoLocate(cmd *cobra.Command, _ []string) error {
	if cfg.Geo.SuburbShapefile == "" {
		return eris.New("geo.suburb_shapefile is not configured")
	}

	idx, err := geo.LoadSuburbs(cfg.Geo.SuburbShapefile, "")
	if err != nil {
		return eris.Wrap(err, "geo locate")
	}

	lon, _ := cmd.Flags().GetFloat64("lon")
	lat, _ := cmd.Flags().GetFloat64("lat")

	suburb := idx.Locate(lon, lat)
	if suburb == "" {
		fmt.Printf("No suburb contains (%f, %f)\n", lon, lat)
		return nil
	}
	fmt.Println(suburb)
	return nil
}
