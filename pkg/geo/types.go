package geo

import (
	"fmt"
	"strconv"
	"strings"
)

// Mode is the mode of transportation used for commute durations.
type Mode string

const (
	ModeDriving   Mode = "driving"
	ModeTransit   Mode = "transit"
	ModeBicycling Mode = "bicycling"
	ModeWalking   Mode = "walking"
)

// Modes lists the supported modes of transportation.
var Modes = []Mode{ModeDriving, ModeTransit, ModeBicycling, ModeWalking}

// ParseMode validates a user-supplied mode string.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	for _, v := range Modes {
		if m == v {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown mode: %q (supported: %s)", s, JoinModes(", "))
}

// JoinModes renders the supported mode list for usage strings.
func JoinModes(sep string) string {
	parts := make([]string, 0, len(Modes))
	for _, m := range Modes {
		parts = append(parts, string(m))
	}
	return strings.Join(parts, sep)
}

// Coordinates is an immutable geographic point.
type Coordinates struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

// LngLat renders the point in the lon,lat order OSRM expects.
func (c Coordinates) LngLat() string {
	return strconv.FormatFloat(c.Lng, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lat, 'f', -1, 64)
}
