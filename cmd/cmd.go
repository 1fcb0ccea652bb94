// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// serveCommand runs the chat bot and its download worker
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Run the Telegram bot and the download worker",
		Action: r.Serve,
	}
}

// downloadCommand runs one link through the pipeline from the terminal
func downloadCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "download",
		Aliases: []string{"dl"},
		Usage:   "Download a Spotify track, playlist or album link as MP3",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "link",
			},
		},
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "bitrate",
				Aliases: []string{"b"},
				Usage:   "MP3 bitrate in Kbps (128, 192, 256 or 320); defaults to download.default_bitrate",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Directory delivered files are copied into",
				Value:   ".",
			},
			&cli.BoolFlag{
				Name:  "quiet",
				Usage: "Hide the progress bar",
			},
		},
		Action: r.Download,
	}
}

// resolveCommand prints the source a track would be downloaded from
func resolveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "resolve",
		Usage: "Resolve a track to a YouTube source without downloading",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "title",
				Usage:    "Track title",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "artist",
				Usage:    "Primary artist",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Resolve,
	}
}

// setupCommand handles setup operations for database and configuration.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:  "config",
				Usage: "Write a config.toml populated with defaults",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Where to write the file (defaults to $TAMER_CONFIG or config.toml)",
					},
				},
				Action: r.SetupConfig,
			},
		},
	}
}

// historyCommand reads the download audit log
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Inspect download history",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List recent downloads",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of rows to return (0 for all)",
						Value: 50,
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: txt, csv or json",
						Value:   "txt",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write to a file instead of stdout",
					},
				},
				Action: r.HistoryList,
			},
			{
				Name:  "jobs",
				Usage: "List recent jobs with their outcome",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of jobs to return (0 for all)",
						Value: 20,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.HistoryJobs,
			},
		},
	}
}
