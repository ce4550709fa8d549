package cli

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"os"
	"time"

	"github.com/akarper/keydist/pkg/auth"
	"github.com/akarper/keydist/pkg/config"
	"github.com/akarper/keydist/pkg/geo"
	"github.com/akarper/keydist/pkg/input"
	"github.com/akarper/keydist/pkg/net"
	"github.com/akarper/keydist/pkg/score"
	"github.com/urfave/cli/v2"
)

var (
	optionsFlag = &cli.StringFlag{
		Name:     "options",
		Usage:    "File with one candidate address per line",
		Required: true,
	}

	keypointsFlag = &cli.StringFlag{
		Name:     "keypoints",
		Usage:    "File with '<weight> <address>' per line (higher weight = more important)",
		Required: true,
	}

	modeFlag = &cli.StringFlag{
		Name:  "mode",
		Usage: fmt.Sprintf("Mode of transportation [%s]", geo.JoinModes(", ")),
	}

	providerFlag = &cli.StringFlag{
		Name: "provider",
		Usage: fmt.Sprintf("Routing provider [%s, %s]",
			config.ProviderGoogle, config.ProviderOSRM),
	}

	workersFlag = &cli.IntFlag{
		Name:  "workers",
		Usage: "Number of parallel provider lookups (default from config)",
	}

	rankCmd = &cli.Command{
		Name:    "rank",
		Aliases: []string{"r"},
		Usage:   "Rank candidate addresses by weighted commute time to the keypoints",
		UsageText: `keydist rank --options flats.txt --keypoints places.txt                  # rank with config defaults
   keydist rank --options flats.txt --keypoints places.txt --mode transit   # commute by transit
   keydist r --options flats.txt --keypoints places.txt --format text       # plain '<hours> <address>' lines`,
		HideHelpCommand: true,
		Action:          cmdRank,
		Flags: []cli.Flag{
			optionsFlag,
			keypointsFlag,
			modeFlag,
			providerFlag,
			workersFlag,
		},
	}
)

// UnscoredOption is an option excluded from the ranking, with the reason.
type UnscoredOption struct {
	Option score.Option `json:"option" yaml:"option"`
	Reason string       `json:"reason" yaml:"reason"`
}

type RankResult struct {
	Provider string               `json:"provider" yaml:"provider"`
	Mode     string               `json:"mode" yaml:"mode"`
	Ranked   []score.ScoredOption `json:"ranked" yaml:"ranked"`
	Unscored []UnscoredOption     `json:"unscored,omitempty" yaml:"unscored,omitempty"`
	Duration string               `json:"duration" yaml:"duration"`
}

func cmdRank(c *cli.Context) error {
	start := time.Now()
	cfg := getConfig(c)

	conf := *cfg.Conf
	if v := c.String(providerFlag.Name); v != "" {
		conf.Provider = v
	}
	if v := c.String(modeFlag.Name); v != "" {
		conf.Mode = v
	}
	if v := c.Int(workersFlag.Name); v > 0 {
		conf.Workers = v
	}
	if err := conf.Validate(); err != nil {
		return err
	}

	mode, err := geo.ParseMode(conf.Mode)
	if err != nil {
		return err
	}

	// 1. load inputs
	opts, err := input.ReadOptions(c.String(optionsFlag.Name))
	if err != nil {
		return err
	}
	kps, err := input.ReadKeypoints(c.String(keypointsFlag.Name))
	if err != nil {
		return err
	}
	slog.Info("loaded inputs", "options", len(opts), "keypoints", len(kps))

	// 2. resolve pairwise durations
	provider, err := newMatrix(c.Context, cfg, &conf)
	if err != nil {
		return err
	}
	matrix := geo.NewCachedMatrix(provider, cfg.Store, conf.Workers)

	origins := make([]string, len(opts))
	for i, o := range opts {
		origins[i] = o.Address
	}
	destinations := make([]string, len(kps))
	for j, k := range kps {
		destinations[j] = k.Address
	}

	durations, err := matrix.Durations(c.Context, origins, destinations, mode)
	if err != nil {
		return fmt.Errorf("resolving commute durations: %w", err)
	}

	// 3. drop keypoints no option can reach
	var usable []int
	for j := range kps {
		reachable := false
		for i := range opts {
			if !math.IsNaN(durations[i][j]) {
				reachable = true
				break
			}
		}
		if !reachable {
			slog.Warn("keypoint unreachable from every option, dropping", "address", kps[j].Address)
			continue
		}
		usable = append(usable, j)
	}
	if len(usable) == 0 {
		return fmt.Errorf("no usable keypoints, cannot score")
	}

	// 4. score remaining options
	res := &RankResult{
		Provider: provider.Name(),
		Mode:     string(mode),
		Ranked:   make([]score.ScoredOption, 0, len(opts)),
	}

	for i, opt := range opts {
		legs := make([]score.Leg, 0, len(usable))
		missing := ""
		for _, j := range usable {
			if math.IsNaN(durations[i][j]) {
				missing = kps[j].Address
				break
			}
			legs = append(legs, score.Leg{Keypoint: kps[j], Seconds: durations[i][j]})
		}
		if missing != "" {
			slog.Warn("option has no route to keypoint, excluding from ranking",
				"option", opt.Address, "keypoint", missing)
			res.Unscored = append(res.Unscored, UnscoredOption{
				Option: opt,
				Reason: fmt.Sprintf("no route to %q", missing),
			})
			continue
		}

		hours, err := score.Hours(legs)
		if err != nil {
			return fmt.Errorf("scoring %q: %w", opt.Address, err)
		}
		res.Ranked = append(res.Ranked, score.ScoredOption{Option: opt, Hours: hours, Legs: legs})
	}
	if len(res.Ranked) == 0 {
		return fmt.Errorf("no scoreable options, nothing to rank")
	}

	// 5. rank (stable, ascending, lower is better)
	score.Rank(res.Ranked)
	res.Duration = time.Since(start).String()

	if outputFormat == formatText {
		return printText(res)
	}
	if err := encode(res); err != nil {
		return fmt.Errorf("error encoding result: %w", err)
	}
	return nil
}

func newMatrix(ctx context.Context, cfg *appConfig, conf *config.Config) (geo.Matrix, error) {
	switch conf.Provider {
	case config.ProviderGoogle:
		key, err := auth.GetKey(cfg.Home, config.ProviderGoogle)
		if err != nil {
			return nil, err
		}
		return geo.NewGoogleMatrix(conf.GoogleURL, key), nil
	case config.ProviderOSRM:
		client := providerClient(ctx, conf)
		geocoder := geo.NewCachedGeocoder(geo.NewNominatimGeocoder(conf.NominatimURL, client), cfg.Store)
		return geo.NewOSRMMatrix(conf.OSRMURL, geocoder, client, conf.Workers), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", conf.Provider)
	}
}

// providerClient returns a bearer-authenticated client when an API token
// is configured, otherwise nil so the shared client is used.
func providerClient(ctx context.Context, conf *config.Config) *http.Client {
	if conf.APIToken == "" {
		return nil
	}
	return net.GetBearerClient(ctx, conf.APIToken)
}

// printText emits one '<hours> <address>' line per ranked option, best first.
func printText(res *RankResult) error {
	for _, o := range res.Ranked {
		if _, err := fmt.Fprintf(os.Stdout, "%.3f\t%s\n", o.Hours, o.Option.Address); err != nil {
			return err
		}
	}
	return nil
}
