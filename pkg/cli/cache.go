package cli

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

var (
	purgeAllFlag = &cli.BoolFlag{
		Name:  "all",
		Usage: "Delete every cached entry, not just expired ones",
	}

	cacheCmd = &cli.Command{
		Name:            "cache",
		Aliases:         []string{"c"},
		HideHelpCommand: true,
		Usage:           "Lookup cache operations",
		Subcommands: []*cli.Command{
			{
				Name:    "stats",
				Usage:   "Report cached row counts",
				Aliases: []string{"s"},
				Action:  cmdCacheStats,
			},
			{
				Name:    "purge",
				Usage:   "Delete expired (or with --all, every) cached entry",
				Aliases: []string{"p"},
				Action:  cmdCachePurge,
				Flags: []cli.Flag{
					purgeAllFlag,
				},
			},
		},
	}
)

type PurgeResult struct {
	Removed int64 `json:"removed" yaml:"removed"`
}

func cmdCacheStats(c *cli.Context) error {
	cfg := getConfig(c)

	stats, err := cfg.Store.Stats(c.Context)
	if err != nil {
		return fmt.Errorf("failed to query cache stats: %w", err)
	}

	if err := encode(stats); err != nil {
		return fmt.Errorf("error encoding stats: %w", err)
	}
	return nil
}

func cmdCachePurge(c *cli.Context) error {
	cfg := getConfig(c)

	removed, err := cfg.Store.Purge(c.Context, c.Bool(purgeAllFlag.Name))
	if err != nil {
		return fmt.Errorf("failed to purge cache: %w", err)
	}

	if err := encode(&PurgeResult{Removed: removed}); err != nil {
		return fmt.Errorf("error encoding result: %w", err)
	}
	return nil
}
