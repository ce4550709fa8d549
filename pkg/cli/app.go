package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/akarper/keydist/pkg/config"
	"github.com/akarper/keydist/pkg/data"
	"github.com/akarper/keydist/pkg/logging"
	urfave "github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

const (
	dirMode      = 0700
	appConfigKey = "app-config"

	formatJSON = "json"
	formatYAML = "yaml"
	formatText = "text"

	homeEnvVar = "KEYDIST_HOME"
)

var (
	version = "v0.0.1-default"
	commit  = ""
	date    = ""

	outputFormat = formatJSON

	debugFlag = &urfave.BoolFlag{
		Name:  "debug",
		Usage: "Prints verbose logs (optional, default: false)",
	}

	dbFilePathFlag = &urfave.StringFlag{
		Name:  "db",
		Usage: "Path to the SQLite cache file",
	}

	formatFlag = &urfave.StringFlag{
		Name:  "format",
		Usage: "Output format [json, yaml, text]",
		Value: formatJSON,
	}
)

// Execute creates and runs the CLI application.
func Execute() {
	logging.SetDefaultCLILogger("info")

	app := newApp()
	if err := app.Run(os.Args); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

type appConfig struct {
	Home  string
	Conf  *config.Config
	Store data.Store
	Debug bool
}

func getConfig(c *urfave.Context) *appConfig {
	return c.App.Metadata[appConfigKey].(*appConfig)
}

func newApp() *urfave.App {
	return &urfave.App{
		Name:                 "keydist",
		Version:              fmt.Sprintf("%s (%s - %s)", version, commit, date),
		Compiled:             time.Now(),
		EnableBashCompletion: true,
		HideHelpCommand:      true,
		Usage:                "Rank candidate addresses by weighted commute time to your keypoints",
		Flags: []urfave.Flag{
			debugFlag,
			dbFilePathFlag,
			formatFlag,
		},
		Commands: []*urfave.Command{
			rankCmd,
			geocodeCmd,
			authCmd,
			cacheCmd,
		},
		Before: func(c *urfave.Context) error {
			if c.Bool(debugFlag.Name) {
				logging.SetDefaultCLILogger("debug")
			}

			switch f := c.String(formatFlag.Name); f {
			case formatYAML, "yml":
				outputFormat = formatYAML
			case formatText, "txt":
				outputFormat = formatText
			default:
				outputFormat = formatJSON
			}

			home := getHomeDir()

			conf, err := config.ReadOrCreate(home)
			if err != nil {
				return fmt.Errorf("reading config: %w", err)
			}

			dbPath := c.String(dbFilePathFlag.Name)
			if dbPath == "" {
				dbPath = path.Join(home, data.DataFileName)
			}

			ttl := time.Duration(conf.CacheTTLHours) * time.Hour
			store, err := data.Open(dbPath, conf.CacheDSN, ttl)
			if err != nil {
				return fmt.Errorf("opening lookup cache: %w", err)
			}

			c.App.Metadata[appConfigKey] = &appConfig{
				Home:  home,
				Conf:  conf,
				Store: store,
				Debug: c.Bool(debugFlag.Name),
			}
			return nil
		},
		After: func(c *urfave.Context) error {
			if cfg, ok := c.App.Metadata[appConfigKey].(*appConfig); ok && cfg.Store != nil {
				cfg.Store.Close()
			}
			return nil
		},
	}
}

func getHomeDir() string {
	if dir := os.Getenv(homeEnvVar); dir != "" {
		if err := os.MkdirAll(dir, dirMode); err != nil {
			slog.Debug("error creating dir, using current dir instead", "path", dir, "error", err)
			return "."
		}
		return dir
	}

	home, err := os.UserHomeDir()
	if err != nil {
		slog.Debug("error getting home dir, using current dir instead", "error", err)
		return "."
	}
	slog.Debug("home dir", "path", home)

	dirName := ".keydist"
	dirPath := filepath.Join(home, dirName)
	if _, err := os.Stat(dirPath); errors.Is(err, os.ErrNotExist) {
		slog.Debug("creating dir", "path", dirPath)
		err := os.Mkdir(dirPath, dirMode)
		if err != nil {
			slog.Debug("error creating dir", "path", dirPath, "home", home, "error", err)
			return home
		}
	}
	return dirPath
}

func encode(v any) error {
	if outputFormat == formatYAML {
		return yaml.NewEncoder(os.Stdout).Encode(v)
	}
	e := json.NewEncoder(os.Stdout)
	e.SetIndent("", "  ")
	return e.Encode(v)
}
