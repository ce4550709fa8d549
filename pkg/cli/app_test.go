package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/akarper/keydist/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewApp(t *testing.T) {
	app := newApp()
	require.NotNil(t, app)
	assert.Equal(t, "keydist", app.Name)

	names := make([]string, 0, len(app.Commands))
	for _, cmd := range app.Commands {
		names = append(names, cmd.Name)
	}
	assert.Contains(t, names, "rank")
	assert.Contains(t, names, "geocode")
	assert.Contains(t, names, "auth")
	assert.Contains(t, names, "cache")
}

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w
	defer func() { os.Stdout = old }()

	fn()

	require.NoError(t, w.Close())
	b, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(b)
}

// end-to-end rank against stubbed Nominatim and OSRM endpoints
func TestRankEndToEnd(t *testing.T) {
	points := map[string]string{
		"a st":   "1",
		"b ave":  "2",
		"office": "3",
		"gym":    "4",
	}

	nominatim := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lat, ok := points[r.URL.Query().Get("q")]
		if !ok {
			w.Write([]byte(`[]`))
			return
		}
		fmt.Fprintf(w, `[{"lat":"%s","lon":"0","display_name":"stub"}]`, lat)
	}))
	defer nominatim.Close()

	osrm := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// path ends with "<lng>,<lat>;..." and the first point is the origin
		parts := strings.Split(r.URL.Path, "/")
		coords := parts[len(parts)-1]
		switch strings.Split(coords, ";")[0] {
		case "0,1": // a st
			w.Write([]byte(`{"code":"Ok","durations":[[3600,3600]]}`))
		case "0,2": // b ave
			w.Write([]byte(`{"code":"Ok","durations":[[600,600]]}`))
		default:
			w.Write([]byte(`{"code":"InvalidQuery","message":"unexpected origin"}`))
		}
	}))
	defer osrm.Close()

	home := t.TempDir()
	t.Setenv(homeEnvVar, home)
	require.NoError(t, config.Save(home, &config.Config{
		Provider:      config.ProviderOSRM,
		Mode:          "driving",
		Workers:       2,
		CacheTTLHours: 1,
		NominatimURL:  nominatim.URL,
		OSRMURL:       osrm.URL,
		GoogleURL:     "http://unused",
	}))

	optionsPath := filepath.Join(home, "options.txt")
	require.NoError(t, os.WriteFile(optionsPath, []byte("a st\nb ave\n"), 0600))

	// the third keypoint does not geocode and must be dropped with a warning
	keypointsPath := filepath.Join(home, "keypoints.txt")
	require.NoError(t, os.WriteFile(keypointsPath, []byte("2.0 office\n1.0 gym\n1.0 moon base\n"), 0600))

	out := captureStdout(t, func() {
		app := newApp()
		require.NoError(t, app.Run([]string{
			"keydist", "--format", "text",
			"rank", "--options", optionsPath, "--keypoints", keypointsPath,
		}))
	})

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "b ave")
	assert.Contains(t, lines[0], "0.167")
	assert.Contains(t, lines[1], "a st")
	assert.Contains(t, lines[1], "1.000")
}

// an option with no route to a keypoint others can reach is excluded
// from the ranking and reported under unscored
func TestRankExcludesUnroutableOption(t *testing.T) {
	points := map[string]string{
		"a st":   "1",
		"b ave":  "2",
		"office": "3",
		"gym":    "4",
	}

	nominatim := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `[{"lat":"%s","lon":"0","display_name":"stub"}]`, points[r.URL.Query().Get("q")])
	}))
	defer nominatim.Close()

	osrm := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(r.URL.Path, "/")
		switch strings.Split(parts[len(parts)-1], ";")[0] {
		case "0,1": // a st has no route to the gym
			w.Write([]byte(`{"code":"Ok","durations":[[3600,null]]}`))
		case "0,2": // b ave
			w.Write([]byte(`{"code":"Ok","durations":[[600,600]]}`))
		default:
			w.Write([]byte(`{"code":"InvalidQuery","message":"unexpected origin"}`))
		}
	}))
	defer osrm.Close()

	home := t.TempDir()
	t.Setenv(homeEnvVar, home)
	require.NoError(t, config.Save(home, &config.Config{
		Provider:      config.ProviderOSRM,
		Mode:          "driving",
		Workers:       2,
		CacheTTLHours: 1,
		NominatimURL:  nominatim.URL,
		OSRMURL:       osrm.URL,
		GoogleURL:     "http://unused",
	}))

	optionsPath := filepath.Join(home, "options.txt")
	require.NoError(t, os.WriteFile(optionsPath, []byte("a st\nb ave\n"), 0600))
	keypointsPath := filepath.Join(home, "keypoints.txt")
	require.NoError(t, os.WriteFile(keypointsPath, []byte("1.0 office\n1.0 gym\n"), 0600))

	out := captureStdout(t, func() {
		app := newApp()
		require.NoError(t, app.Run([]string{
			"keydist",
			"rank", "--options", optionsPath, "--keypoints", keypointsPath,
		}))
	})

	var res RankResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res.Ranked, 1)
	assert.Equal(t, "b ave", res.Ranked[0].Option.Address)
	require.Len(t, res.Unscored, 1)
	assert.Equal(t, "a st", res.Unscored[0].Option.Address)
	assert.Contains(t, res.Unscored[0].Reason, "gym")
}

// when every option is missing a pair to some usable keypoint the run fails
func TestRankFailsWhenNothingScoreable(t *testing.T) {
	points := map[string]string{
		"a st":   "1",
		"b ave":  "2",
		"office": "3",
		"gym":    "4",
	}

	nominatim := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `[{"lat":"%s","lon":"0","display_name":"stub"}]`, points[r.URL.Query().Get("q")])
	}))
	defer nominatim.Close()

	// each keypoint stays reachable from one option, but neither option
	// reaches both
	osrm := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(r.URL.Path, "/")
		switch strings.Split(parts[len(parts)-1], ";")[0] {
		case "0,1": // a st
			w.Write([]byte(`{"code":"Ok","durations":[[3600,null]]}`))
		default: // b ave
			w.Write([]byte(`{"code":"Ok","durations":[[null,600]]}`))
		}
	}))
	defer osrm.Close()

	home := t.TempDir()
	t.Setenv(homeEnvVar, home)
	require.NoError(t, config.Save(home, &config.Config{
		Provider:      config.ProviderOSRM,
		Mode:          "driving",
		Workers:       2,
		CacheTTLHours: 1,
		NominatimURL:  nominatim.URL,
		OSRMURL:       osrm.URL,
		GoogleURL:     "http://unused",
	}))

	optionsPath := filepath.Join(home, "options.txt")
	require.NoError(t, os.WriteFile(optionsPath, []byte("a st\nb ave\n"), 0600))
	keypointsPath := filepath.Join(home, "keypoints.txt")
	require.NoError(t, os.WriteFile(keypointsPath, []byte("1.0 office\n1.0 gym\n"), 0600))

	app := newApp()
	err := app.Run([]string{
		"keydist",
		"rank", "--options", optionsPath, "--keypoints", keypointsPath,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no scoreable options")
}

func TestRank_MissingInputs(t *testing.T) {
	home := t.TempDir()
	t.Setenv(homeEnvVar, home)

	app := newApp()
	err := app.Run([]string{
		"keydist", "rank",
		"--options", filepath.Join(home, "missing.txt"),
		"--keypoints", filepath.Join(home, "missing.txt"),
	})
	assert.Error(t, err)
}
