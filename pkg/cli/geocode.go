package cli

import (
	"fmt"

	"github.com/akarper/keydist/pkg/geo"
	"github.com/urfave/cli/v2"
)

var (
	addressFlag = &cli.StringFlag{
		Name:     "address",
		Usage:    "Address to resolve",
		Required: true,
	}

	geocodeCmd = &cli.Command{
		Name:            "geocode",
		Aliases:         []string{"g"},
		HideHelpCommand: true,
		Usage:           "Resolve a single address to coordinates",
		Action:          cmdGeocode,
		Flags: []cli.Flag{
			addressFlag,
		},
	}
)

type GeocodeResult struct {
	Address     string          `json:"address" yaml:"address"`
	Coordinates geo.Coordinates `json:"coordinates" yaml:"coordinates"`
}

func cmdGeocode(c *cli.Context) error {
	cfg := getConfig(c)

	address := c.String(addressFlag.Name)
	client := providerClient(c.Context, cfg.Conf)
	geocoder := geo.NewCachedGeocoder(geo.NewNominatimGeocoder(cfg.Conf.NominatimURL, client), cfg.Store)

	coords, err := geocoder.Geocode(c.Context, address)
	if err != nil {
		return fmt.Errorf("failed to geocode: %w", err)
	}

	res := &GeocodeResult{Address: address, Coordinates: *coords}
	if err := encode(res); err != nil {
		return fmt.Errorf("error encoding: %+v: %w", res, err)
	}
	return nil
}
