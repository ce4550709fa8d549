package geo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/akarper/keydist/pkg/net"
	"golang.org/x/sync/errgroup"
)

const osrmCodeOK = "Ok"

// OSRM routes by coordinates, so addresses are geocoded first.
var osrmProfiles = map[Mode]string{
	ModeDriving:   "driving",
	ModeBicycling: "cycling",
	ModeWalking:   "walking",
}

// OSRMMatrix resolves commute durations through an OSRM table service.
// Transit is not supported by OSRM. A nil client falls back to the
// shared client; pass a bearer client for token-protected instances.
type OSRMMatrix struct {
	baseURL  string
	geocoder Geocoder
	client   *http.Client
	workers  int
}

func NewOSRMMatrix(baseURL string, geocoder Geocoder, client *http.Client, workers int) *OSRMMatrix {
	if workers < 1 {
		workers = 1
	}
	return &OSRMMatrix{baseURL: baseURL, geocoder: geocoder, client: client, workers: workers}
}

func (m *OSRMMatrix) Name() string {
	return "osrm"
}

type osrmResponse struct {
	Code      string       `json:"code"`
	Message   string       `json:"message,omitempty"`
	Durations [][]*float64 `json:"durations"`
}

func (m *OSRMMatrix) Durations(ctx context.Context, origins, destinations []string, mode Mode) ([][]float64, error) {
	profile, ok := osrmProfiles[mode]
	if !ok {
		return nil, fmt.Errorf("mode %s is not supported by the osrm provider", mode)
	}

	addresses := make([]string, 0, len(origins)+len(destinations))
	addresses = append(addresses, origins...)
	addresses = append(addresses, destinations...)

	coords, err := m.geocodeAll(ctx, addresses)
	if err != nil {
		return nil, err
	}

	// Positions of resolved addresses in the OSRM coordinate list.
	pos := make([]int, len(addresses))
	var points []string
	for i, c := range coords {
		if c == nil {
			pos[i] = -1
			continue
		}
		pos[i] = len(points)
		points = append(points, c.LngLat())
	}

	out := nanMatrix(len(origins), len(destinations))

	var sources, targets []string
	for i := range origins {
		if pos[i] >= 0 {
			sources = append(sources, strconv.Itoa(pos[i]))
		}
	}
	for j := range destinations {
		if pos[len(origins)+j] >= 0 {
			targets = append(targets, strconv.Itoa(pos[len(origins)+j]))
		}
	}
	if len(sources) == 0 || len(targets) == 0 {
		return out, nil
	}

	q := url.Values{}
	q.Set("sources", strings.Join(sources, ";"))
	q.Set("destinations", strings.Join(targets, ";"))
	q.Set("annotations", "duration")

	reqURL := fmt.Sprintf("%s/table/v1/%s/%s?%s", m.baseURL, profile, strings.Join(points, ";"), q.Encode())

	var resp osrmResponse
	if err := net.GetJSON(ctx, m.client, reqURL, &resp); err != nil {
		return nil, fmt.Errorf("osrm table request: %w", err)
	}
	if resp.Code != osrmCodeOK {
		return nil, fmt.Errorf("osrm table code %s: %s", resp.Code, resp.Message)
	}
	if len(resp.Durations) != len(sources) {
		return nil, fmt.Errorf("osrm table returned %d rows for %d sources", len(resp.Durations), len(sources))
	}

	si := 0
	for i := range origins {
		if pos[i] < 0 {
			continue
		}
		row := resp.Durations[si]
		si++
		if len(row) != len(targets) {
			return nil, fmt.Errorf("osrm table row has %d cells for %d destinations", len(row), len(targets))
		}
		ti := 0
		for j := range destinations {
			if pos[len(origins)+j] < 0 {
				continue
			}
			if v := row[ti]; v != nil {
				out[i][j] = *v
			}
			ti++
		}
	}
	return out, nil
}

// geocodeAll resolves addresses in parallel with a bounded pool. Addresses
// the geocoder cannot find come back nil; other failures abort the batch.
func (m *OSRMMatrix) geocodeAll(ctx context.Context, addresses []string) ([]*Coordinates, error) {
	coords := make([]*Coordinates, len(addresses))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)
	for i, a := range addresses {
		g.Go(func() error {
			c, err := m.geocoder.Geocode(ctx, a)
			if err != nil {
				if errors.Is(err, ErrAddressNotFound) {
					slog.Warn("address not found, skipping", "address", a)
					return nil
				}
				return err
			}
			coords[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return coords, nil
}

func nanMatrix(rows, cols int) [][]float64 {
	out := make([][]float64, rows)
	for i := range out {
		out[i] = make([]float64, cols)
		for j := range out[i] {
			out[i][j] = math.NaN()
		}
	}
	return out
}
