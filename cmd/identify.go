package main

import (
	"encoding/json"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/fieldguide/internal/identify"
	"github.com/sells-group/fieldguide/internal/model"
	"github.com/sells-group/fieldguide/pkg/vision"
)

var (
	identifyImage   string
	identifyLat     float64
	identifyLng     float64
	identifyPlace   string
	identifySource  string
	identifyHistory bool
)

var identifyCmd = &cobra.Command{
	Use:   "identify",
	Short: "Identify the organism in a photo",
	Long:  "Identifies the organism in a local photo or image URL and prints the result as JSON.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		img, err := loadImage(identifyImage)
		if err != nil {
			return err
		}

		var loc *model.LocationData
		if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lng") {
			if !cmd.Flags().Changed("lat") || !cmd.Flags().Changed("lng") {
				return eris.New("--lat and --lng must be set together")
			}
			loc = &model.LocationData{
				Coords: model.Coords{Lat: identifyLat, Lng: identifyLng},
				Name:   identifyPlace,
				Source: model.LocationSource(identifySource),
			}
		}

		env, err := initApp(ctx, "identify", identifyHistory)
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Identify.Identify(ctx, identify.Request{Image: img, Location: loc})
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

// loadImage reads a local file, or returns a remote reference for http(s) URLs.
func loadImage(src string) (vision.Image, error) {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return vision.Image{URL: src}, nil
	}

	data, err := os.ReadFile(src)
	if err != nil {
		return vision.Image{}, eris.Wrapf(err, "read image %s", src)
	}
	mediaType := mime.TypeByExtension(strings.ToLower(filepath.Ext(src)))
	if mediaType == "" {
		mediaType = http.DetectContentType(data)
	}
	return vision.Image{Data: data, MediaType: mediaType}, nil
}

func init() {
	identifyCmd.Flags().StringVar(&identifyImage, "image", "", "image file path or http(s) URL (required)")
	identifyCmd.Flags().Float64Var(&identifyLat, "lat", 0, "latitude of the photo")
	identifyCmd.Flags().Float64Var(&identifyLng, "lng", 0, "longitude of the photo")
	identifyCmd.Flags().StringVar(&identifyPlace, "place", "", "place name for the location")
	identifyCmd.Flags().StringVar(&identifySource, "source", "manual", "location source: gps, exif or manual")
	identifyCmd.Flags().BoolVar(&identifyHistory, "history", false, "record the result in the history store")
	_ = identifyCmd.MarkFlagRequired("image")
	rootCmd.AddCommand(identifyCmd)
}
