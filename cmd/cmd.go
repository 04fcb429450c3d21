// submodule cmd contains command definitions
package main

import (
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/tunemeld/internal/formatter"
)

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create the config file and initialize the database",
		Action: r.Setup,
	}
}

func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tui",
		Usage: "Launch the interactive chart browser",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "url",
				Usage: "Start location, e.g. \"/?genre=rap&rank=spotify-views\"",
			},
			&cli.BoolFlag{
				Name:  "resume",
				Usage: "Start from the last visited location when no --url is given",
				Value: true,
			},
		},
		Action: r.TUI,
	}
}

func genresCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "genres",
		Usage: "List available genres",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
			&cli.BoolFlag{Name: "pretty", Usage: "Pretty-print JSON output"},
		},
		Action: r.Genres,
	}
}

func ranksCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "ranks",
		Usage: "List rank (sort) definitions",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
			&cli.BoolFlag{Name: "pretty", Usage: "Pretty-print JSON output"},
		},
		Action: r.Ranks,
	}
}

func chartCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "chart",
		Usage: "Resolve a location and print the rendered chart",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "genre", Aliases: []string{"g"}, Usage: "Genre name"},
			&cli.StringFlag{Name: "rank", Aliases: []string{"r"}, Usage: "Rank sort field"},
			&cli.StringFlag{Name: "url", Usage: "Location to resolve; overrides --genre and --rank"},
			&cli.BoolFlag{Name: "services", Usage: "Include per-service playlists"},
			&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
			&cli.BoolFlag{Name: "pretty", Usage: "Pretty-print JSON output"},
		},
		Action: r.Chart,
	}
}

func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export charts to files",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Export format (json, csv, markdown, txt)",
				Value:   formatter.FormatCSV,
			},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output directory"},
			&cli.StringSliceFlag{Name: "genre", Aliases: []string{"g"}, Usage: "Genre to export (repeatable, default all)"},
			&cli.StringSliceFlag{Name: "service", Aliases: []string{"s"}, Usage: "Service to export (repeatable, default all)"},
			&cli.StringFlag{Name: "rank", Aliases: []string{"r"}, Usage: "Sort the tunemeld chart by this rank"},
			&cli.IntFlag{Name: "workers", Usage: "Concurrent writers", Value: 4},
			&cli.FloatFlag{Name: "rate", Usage: "Requests per second", Value: 5},
			&cli.BoolFlag{Name: "covers", Usage: "Download playlist covers (markdown only)"},
		},
		Action: r.Export,
	}
}

func themeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "theme",
		Usage: "Show or change the persisted theme",
		Commands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Print the current theme",
				Action: r.ThemeShow,
			},
			{
				Name:      "set",
				Usage:     "Persist a theme",
				ArgsUsage: "<dark|light>",
				Action:    r.ThemeSet,
			},
			{
				Name:   "toggle",
				Usage:  "Switch between dark and light",
				Action: r.ThemeToggle,
			},
		},
	}
}

func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show recently visited chart locations",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Maximum entries", Value: 10},
			&cli.BoolFlag{Name: "clear", Usage: "Delete the recorded history"},
			&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
		},
		Action: r.History,
	}
}

func fixturesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "fixtures",
		Usage: "Local fixture chart API",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Serve the fixture API until interrupted",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "host", Usage: "Listen host (default from config)"},
					&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "Listen port (default from config)"},
					&cli.StringFlag{Name: "data", Usage: "Fixture JSON file (default from config, then built-in)"},
				},
				Action: r.FixturesServe,
			},
		},
	}
}
