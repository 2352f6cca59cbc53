// Package cli contains the crowdsim command line application.
package cli

import (
	"io"

	"github.com/urfave/cli/v2"
)

const (
	// Global flags.
	flagConfig  = "config"
	flagDebug   = "debug"
	flagLogFile = "log-file"
	flagQuiet   = "quiet"

	// Command flags.
	flagTicks     = "ticks"
	flagDT        = "dt"
	flagPNGDir    = "png-dir"
	flagPNGEvery  = "png-every"
	flagLayer     = "layer"
	flagPlot      = "plot"
	flagOut       = "out"
	flagLabels    = "labels"
	flagWidth     = "width"
	flagHeight    = "height"
	flagThumbnail = "thumbnail"
	flagLayers    = "layers"
	flagSound     = "sound"
	flagWatch     = "watch"
	flagHistogram = "histogram"

	defaultDT = 1. / 60
)

// Flags shared by several commands. Each call returns a fresh flag since flags carry parse state.

func ticksFlag() cli.Flag {
	return &cli.IntFlag{
		Name:  flagTicks,
		Usage: "number of ticks to simulate",
		Value: 500,
	}
}

func dtFlag() cli.Flag {
	return &cli.Float64Flag{
		Name:  flagDT,
		Usage: "tick length in `SECONDS`",
		Value: defaultDT,
	}
}

func layerFlag() cli.Flag {
	return &cli.IntFlag{
		Name:  flagLayer,
		Usage: "tree depth to draw, -1 for every depth",
		Value: -1,
	}
}

func plotFlag() cli.Flag {
	return &cli.PathFlag{
		Name:  flagPlot,
		Usage: "write a plot of step times to `FILE`",
	}
}

func histogramFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  flagHistogram,
		Usage: "print a histogram of step times",
	}
}

// NewApp returns a new app with the crowdsim commands, Writer set to out, and ErrWriter set to
// errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	s := &session{}
	app := &cli.App{
		Name:            "crowdsim",
		Usage:           "simulate a crowd over a dynamic bounding volume hierarchy",
		HideHelpCommand: true,
		Flags: []cli.Flag{
			&cli.PathFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE`",
			},
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
			&cli.PathFlag{
				Name:  flagLogFile,
				Usage: "also write logs to `FILE`, rotated as it grows",
			},
			&cli.BoolFlag{
				Name:    flagQuiet,
				Aliases: []string{"q"},
				Usage:   "hide progress spinners",
			},
		},
		Before: s.before,
		After:  s.after,
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "run the simulation headless for a fixed number of ticks",
				UsageText: "crowdsim [global options] run [--ticks N] [--dt S] [--png-dir DIR] [other options]",
				Flags: []cli.Flag{
					ticksFlag(),
					dtFlag(),
					&cli.PathFlag{
						Name:  flagPNGDir,
						Usage: "write a snapshot image into `DIR` every few ticks",
					},
					&cli.IntFlag{
						Name:  flagPNGEvery,
						Usage: "ticks between snapshots",
						Value: 50,
					},
					layerFlag(),
					plotFlag(),
					histogramFlag(),
					&cli.BoolFlag{
						Name:  flagLayers,
						Usage: "print a table of the final tree layers",
					},
				},
				Action: s.runAction,
			},
			{
				Name:      "render",
				Usage:     "simulate some ticks and write one snapshot image",
				UsageText: "crowdsim [global options] render --out FILE [--ticks N] [other options]",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  flagTicks,
						Usage: "number of ticks to simulate before rendering",
					},
					dtFlag(),
					&cli.PathFlag{
						Name:     flagOut,
						Usage:    "image `FILE`; .png, .jpg, .gif, .tif, .bmp or .ppm",
						Required: true,
					},
					layerFlag(),
					&cli.BoolFlag{
						Name:  flagLabels,
						Usage: "label each object with its index",
					},
					&cli.IntFlag{
						Name:  flagWidth,
						Usage: "image width in pixels",
						Value: 800,
					},
					&cli.IntFlag{
						Name:  flagHeight,
						Usage: "image height in pixels",
						Value: 800,
					},
					&cli.IntFlag{
						Name:  flagThumbnail,
						Usage: "also write a copy scaled down to `WIDTH` pixels next to the image",
					},
				},
				Action: s.renderAction,
			},
			{
				Name:  "view",
				Usage: "watch the simulation live in the terminal",
				Flags: []cli.Flag{
					dtFlag(),
					layerFlag(),
					&cli.BoolFlag{
						Name:  flagSound,
						Usage: "play a tone when collisions are resolved",
					},
					&cli.BoolFlag{
						Name:  flagWatch,
						Usage: "reload shapes and scale when the config file changes",
					},
				},
				Action: s.viewAction,
			},
			{
				Name:  "bench",
				Usage: "compare broad phases and tree policies on the same crowd",
				Flags: []cli.Flag{
					ticksFlag(),
					dtFlag(),
					plotFlag(),
					histogramFlag(),
				},
				Action: s.benchAction,
			},
			{
				Name:   "schema",
				Usage:  "print the JSON schema of the config file",
				Action: s.schemaAction,
			},
		},
	}
	app.Writer = out
	app.ErrWriter = errOut
	return app
}
