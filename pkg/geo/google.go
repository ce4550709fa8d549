package geo

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"strings"

	"github.com/akarper/keydist/pkg/net"
)

const (
	googleStatusOK = "OK"

	// Distance Matrix caps a single request at 25 origins and 25 destinations.
	googleBatchLimit = 25
)

// GoogleMatrix resolves commute durations through the Google Distance
// Matrix API. Addresses are passed as-is, no separate geocoding step.
type GoogleMatrix struct {
	baseURL string
	key     string
}

func NewGoogleMatrix(baseURL, key string) *GoogleMatrix {
	return &GoogleMatrix{baseURL: baseURL, key: key}
}

func (m *GoogleMatrix) Name() string {
	return "google"
}

type googleElement struct {
	Status   string `json:"status"`
	Duration struct {
		Value float64 `json:"value"`
	} `json:"duration"`
}

type googleResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
	Rows         []struct {
		Elements []googleElement `json:"elements"`
	} `json:"rows"`
}

func (m *GoogleMatrix) Durations(ctx context.Context, origins, destinations []string, mode Mode) ([][]float64, error) {
	if len(origins) == 0 || len(destinations) == 0 {
		return nil, fmt.Errorf("origins and destinations are required")
	}
	if len(origins) > googleBatchLimit || len(destinations) > googleBatchLimit {
		return nil, fmt.Errorf("distance matrix request too large: %dx%d (max %dx%d)",
			len(origins), len(destinations), googleBatchLimit, googleBatchLimit)
	}

	q := url.Values{}
	q.Set("origins", strings.Join(origins, "|"))
	q.Set("destinations", strings.Join(destinations, "|"))
	q.Set("mode", string(mode))
	q.Set("departure_time", "now")
	q.Set("key", m.key)

	var resp googleResponse
	if err := net.GetJSON(ctx, nil, m.baseURL+"?"+q.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("distance matrix request: %w", err)
	}

	if resp.Status != googleStatusOK {
		return nil, fmt.Errorf("distance matrix status %s: %s", resp.Status, resp.ErrorMessage)
	}
	if len(resp.Rows) != len(origins) {
		return nil, fmt.Errorf("distance matrix returned %d rows for %d origins", len(resp.Rows), len(origins))
	}

	out := make([][]float64, len(origins))
	for i, row := range resp.Rows {
		if len(row.Elements) != len(destinations) {
			return nil, fmt.Errorf("distance matrix row %d has %d elements for %d destinations",
				i, len(row.Elements), len(destinations))
		}
		out[i] = make([]float64, len(destinations))
		for j, el := range row.Elements {
			if el.Status != googleStatusOK {
				slog.Warn("no route for pair",
					"origin", origins[i], "destination", destinations[j], "status", el.Status)
				out[i][j] = math.NaN()
				continue
			}
			out[i][j] = el.Duration.Value
		}
	}
	return out, nil
}
