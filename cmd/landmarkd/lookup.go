package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/landmarks/landmark"
)

func newLookupCmd(flags *rootFlags) *cobra.Command {
	var (
		lat, lon, north, south, east, west float64
		p                                  landmark.RequestParams
		categories                         string
	)

	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "Resolve one lookup and print the landmarks as JSON",
		Example: `  landmarkd lookup --lat 59.2753 --lon 15.2134 --categories historical
  landmarkd lookup --north 59.4 --south 59.1 --east 15.4 --west 15.0`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.load(cmd)
			if err != nil {
				return err
			}

			set := func(name string, v float64) *float64 {
				if cmd.Flags().Changed(name) {
					return landmark.Float(v)
				}
				return nil
			}
			p.Lat, p.Lon = set("lat", lat), set("lon", lon)
			p.North, p.South = set("north", north), set("south", south)
			p.East, p.West = set("east", east), set("west", west)
			p.Categories = landmark.ParseCategories(categories)

			ctx := cmd.Context()
			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			results, err := a.pipeline.ResolveStrict(ctx, p)
			if err != nil {
				return fmt.Errorf("lookup failed: %w", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		},
	}

	f := cmd.Flags()
	f.Float64Var(&lat, "lat", 0, "center latitude")
	f.Float64Var(&lon, "lon", 0, "center longitude")
	f.Float64Var(&north, "north", 0, "bounding box north edge")
	f.Float64Var(&south, "south", 0, "bounding box south edge")
	f.Float64Var(&east, "east", 0, "bounding box east edge")
	f.Float64Var(&west, "west", 0, "bounding box west edge")
	f.StringVar(&p.Search, "search", "", "search term")
	f.BoolVar(&p.Specific, "specific", false, "return only the landmark whose title equals the search term")
	f.StringVar(&categories, "categories", "", "comma-separated category filter")
	return cmd
}
