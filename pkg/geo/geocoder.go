package geo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/akarper/keydist/pkg/data"
	"github.com/akarper/keydist/pkg/net"
)

// ErrAddressNotFound is returned when the geocoder has no result for an address.
var ErrAddressNotFound = errors.New("address not found")

// Geocoder resolves a free-text address to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*Coordinates, error)
	Name() string
}

// NominatimGeocoder resolves addresses through the OpenStreetMap
// Nominatim search endpoint. A nil client falls back to the shared
// client; pass a bearer client for token-protected instances.
type NominatimGeocoder struct {
	baseURL string
	client  *http.Client
}

func NewNominatimGeocoder(baseURL string, client *http.Client) *NominatimGeocoder {
	return &NominatimGeocoder{baseURL: baseURL, client: client}
}

func (g *NominatimGeocoder) Name() string {
	return "nominatim"
}

type nominatimResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

func (g *NominatimGeocoder) Geocode(ctx context.Context, address string) (*Coordinates, error) {
	q := url.Values{}
	q.Set("q", address)
	q.Set("format", "json")
	q.Set("limit", "1")

	var results []nominatimResult
	if err := net.GetJSON(ctx, g.client, g.baseURL+"/search?"+q.Encode(), &results); err != nil {
		return nil, fmt.Errorf("geocoding %q: %w", address, err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("geocoding %q: %w", address, ErrAddressNotFound)
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("geocoding %q: invalid lat %q", address, results[0].Lat)
	}
	lng, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("geocoding %q: invalid lon %q", address, results[0].Lon)
	}

	slog.Debug("geocoded", "address", address, "match", results[0].DisplayName, "lat", lat, "lng", lng)
	return &Coordinates{Lat: lat, Lng: lng}, nil
}

// CachedGeocoder consults the lookup cache before delegating to the
// underlying geocoder, and writes fresh results back.
type CachedGeocoder struct {
	inner Geocoder
	store data.Store
}

func NewCachedGeocoder(inner Geocoder, store data.Store) *CachedGeocoder {
	return &CachedGeocoder{inner: inner, store: store}
}

func (g *CachedGeocoder) Name() string {
	return g.inner.Name()
}

func (g *CachedGeocoder) Geocode(ctx context.Context, address string) (*Coordinates, error) {
	lat, lng, ok, err := g.store.GetGeocode(ctx, g.inner.Name(), address)
	if err != nil {
		return nil, err
	}
	if ok {
		return &Coordinates{Lat: lat, Lng: lng}, nil
	}

	c, err := g.inner.Geocode(ctx, address)
	if err != nil {
		return nil, err
	}

	if err := g.store.PutGeocode(ctx, g.inner.Name(), address, c.Lat, c.Lng); err != nil {
		slog.Warn("failed to cache geocode result", "address", address, "error", err)
	}
	return c, nil
}
