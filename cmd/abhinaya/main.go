// Command abhinaya runs the gesture tracking service.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// Flags.
const (
	flagConfig   = "config"
	flagAddr     = "addr"
	flagDataDir  = "data-dir"
	flagLogLevel = "log-level"
	flagCamera   = "camera"
	flagStart    = "start"
	flagLimit    = "limit"
)

func newApp() *cli.App {
	return &cli.App{
		Name:            "abhinaya",
		Usage:           "recognize hand, face and body gestures from a camera feed",
		HideHelpCommand: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE`",
				EnvVars: []string{"ABHINAYA_CONFIG"},
			},
			&cli.StringFlag{
				Name:  flagDataDir,
				Usage: "store the database in `DIR`",
			},
			&cli.StringFlag{
				Name:  flagLogLevel,
				Usage: "log `LEVEL` (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:  flagAddr,
				Usage: "listen on `ADDR`",
			},
			&cli.IntFlag{
				Name:  flagCamera,
				Usage: "capture from camera `INDEX`",
				Value: -1,
			},
			&cli.BoolFlag{
				Name:  flagStart,
				Usage: "start tracking immediately",
				Value: true,
			},
		},
		Action: serveAction,
		Commands: []*cli.Command{
			{
				Name:   "events",
				Usage:  "print the most recent gesture events as JSON lines",
				Action: eventsAction,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  flagLimit,
						Usage: "print at most `N` events",
						Value: 20,
					},
				},
			},
			{
				Name:  "calibration",
				Usage: "inspect or reset the projector calibration",
				Subcommands: []*cli.Command{
					{
						Name:   "show",
						Usage:  "print the saved calibration",
						Action: calibrationShowAction,
					},
					{
						Name:   "clear",
						Usage:  "remove the saved calibration",
						Action: calibrationClearAction,
					},
				},
			},
			{
				Name:   "plugins",
				Usage:  "list action plugins and their gesture bindings",
				Action: pluginsAction,
			},
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "abhinaya: %v\n", err)
		os.Exit(1)
	}
}
