package main

import (
	"encoding/json"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/fieldguide/internal/model"
	"github.com/sells-group/fieldguide/internal/region"
)

var regionCmd = &cobra.Command{
	Use:   "region <lat> <lng>",
	Short: "Classify a coordinate into a biogeographic region",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := parseCoords(args[0], args[1])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(region.Lookup(c.Lat, c.Lng))
	},
}

func parseCoords(latS, lngS string) (model.Coords, error) {
	lat, err := strconv.ParseFloat(latS, 64)
	if err != nil {
		return model.Coords{}, eris.Wrapf(err, "parse latitude %q", latS)
	}
	lng, err := strconv.ParseFloat(lngS, 64)
	if err != nil {
		return model.Coords{}, eris.Wrapf(err, "parse longitude %q", lngS)
	}
	c := model.Coords{Lat: lat, Lng: lng}
	if err := c.Validate(); err != nil {
		return model.Coords{}, eris.Wrap(err, "invalid coordinates")
	}
	return c, nil
}

func init() {
	rootCmd.AddCommand(regionCmd)
}
