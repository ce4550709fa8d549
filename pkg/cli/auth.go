package cli

import (
	"fmt"

	"github.com/akarper/keydist/pkg/auth"
	"github.com/akarper/keydist/pkg/config"
	"github.com/urfave/cli/v2"
)

var (
	keyFlag = &cli.StringFlag{
		Name:     "key",
		Usage:    "Routing provider API key",
		Required: true,
	}

	authProviderFlag = &cli.StringFlag{
		Name:  "provider",
		Usage: "Routing provider the key belongs to",
		Value: config.ProviderGoogle,
	}

	authCmd = &cli.Command{
		Name:            "auth",
		HideHelpCommand: true,
		Usage:           "Store the routing provider API key in the OS keychain",
		UsageText:       `keydist auth --key AIza...   # store the Google Distance Matrix key`,
		Action:          cmdAuth,
		Flags: []cli.Flag{
			keyFlag,
			authProviderFlag,
		},
	}
)

func cmdAuth(c *cli.Context) error {
	cfg := getConfig(c)

	provider := c.String(authProviderFlag.Name)
	if err := auth.SaveKey(cfg.Home, provider, c.String(keyFlag.Name)); err != nil {
		return fmt.Errorf("saving key: %w", err)
	}

	fmt.Printf("Key for %s saved\n", provider)
	return nil
}
