// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{Name: "json", Usage: "Output JSON"}
}

func formatFlag() cli.Flag {
	return &cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "Output format: text, markdown, csv or json", Value: "text"}
}

func limitFlag() cli.Flag {
	return &cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Maximum number of items", Value: 20}
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create the config file and credential database",
		Commands: []*cli.Command{
			{
				Name:  "config",
				Usage: "Write a config file from the built-in template",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "force", Usage: "Overwrite an existing file"},
				},
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Create the SQLite credential store and run migrations",
				Action: r.SetupDatabase,
			},
		},
	}
}

func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage the Spotify session",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Sign in through the browser (authorization code with PKCE)",
				Flags: []cli.Flag{
					&cli.DurationFlag{Name: "timeout", Usage: "How long to wait for the browser redirect"},
					&cli.BoolFlag{Name: "no-browser", Usage: "Print the authorization URL instead of opening it"},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Show the restored session",
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.AuthStatus,
			},
			{
				Name:   "logout",
				Usage:  "Delete the stored credential",
				Action: r.AuthLogout,
			},
		},
	}
}

func libraryCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "library",
		Usage: "List saved playlists, liked songs, podcasts, albums and artists",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "kind", Aliases: []string{"k"}, Usage: "Only show one kind: liked, playlist, podcast, album or artist"},
			jsonFlag(),
			formatFlag(),
		},
		Action: r.Library,
	}
}

func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlists",
		Aliases: []string{"pl"},
		Usage:   "Create and edit playlists",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List your playlists",
				Flags:  []cli.Flag{jsonFlag(), formatFlag()},
				Action: r.PlaylistsList,
			},
			{
				Name:      "create",
				Usage:     "Create a playlist",
				Arguments: []cli.Argument{&cli.StringArg{Name: "name"}},
				Flags:     []cli.Flag{jsonFlag()},
				Action:    r.PlaylistsCreate,
			},
			{
				Name:  "add",
				Usage: "Add a track to a playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "playlist"},
					&cli.StringArg{Name: "track"},
				},
				Action: r.PlaylistsAdd,
			},
			{
				Name:  "remove",
				Usage: "Remove a track from a playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "playlist"},
					&cli.StringArg{Name: "track"},
				},
				Action: r.PlaylistsRemove,
			},
			{
				Name:  "rename",
				Usage: "Rename a playlist and optionally set its description",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "playlist"},
					&cli.StringArg{Name: "name"},
				},
				Flags:  []cli.Flag{&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "New description"}},
				Action: r.PlaylistsRename,
			},
			{
				Name:      "delete",
				Usage:     "Unfollow (delete) a playlist",
				Arguments: []cli.Argument{&cli.StringArg{Name: "playlist"}},
				Action:    r.PlaylistsDelete,
			},
			{
				Name:      "tracks",
				Usage:     "List or export the tracks of a playlist",
				Arguments: []cli.Argument{&cli.StringArg{Name: "playlist"}},
				Flags: []cli.Flag{
					jsonFlag(),
					formatFlag(),
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Write to a file instead of stdout"},
				},
				Action: r.PlaylistsTracks,
			},
			{
				Name:      "export",
				Usage:     "Export playlists to a directory, one file each plus a manifest",
				ArgsUsage: "[playlist-id...]",
				Flags: []cli.Flag{
					formatFlag(),
					&cli.BoolFlag{Name: "all", Aliases: []string{"a"}, Usage: "Export every playlist in your library"},
					&cli.StringFlag{Name: "dir", Aliases: []string{"d"}, Usage: "Output directory (default: encore_export_<epoch>)"},
					&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Usage: "Concurrent file writers", Value: 4},
				},
				Action: r.PlaylistsExport,
			},
		},
	}
}

func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search tracks and artists",
		Arguments: []cli.Argument{&cli.StringArg{Name: "query"}},
		Flags:     []cli.Flag{jsonFlag()},
		Action:    r.Search,
	}
}

func artistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "artist",
		Usage:     "Show an artist with top tracks, albums and related artists",
		Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
		Flags:     []cli.Flag{jsonFlag()},
		Action:    r.Artist,
	}
}

func mediaCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "media",
		Usage:     "Show a podcast with its episodes, or an album with its tracks",
		Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
		Flags:     []cli.Flag{jsonFlag(), formatFlag()},
		Action:    r.Media,
	}
}

func browseCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "browse",
		Usage: "Discover new releases and your top items",
		Commands: []*cli.Command{
			{
				Name:   "new-releases",
				Usage:  "List new album releases",
				Flags:  []cli.Flag{jsonFlag(), limitFlag()},
				Action: r.BrowseNewReleases,
			},
			{
				Name:  "top",
				Usage: "List your top tracks or artists",
				Flags: []cli.Flag{
					jsonFlag(),
					limitFlag(),
					&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Usage: "tracks or artists", Value: "tracks"},
				},
				Action: r.BrowseTop,
			},
		},
	}
}

func playCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "play",
		Usage:     "Play a track preview and wait until it ends",
		Arguments: []cli.Argument{&cli.StringArg{Name: "track"}},
		Action:    r.Play,
	}
}

func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "tui",
		Usage:  "Launch the interactive terminal interface",
		Action: r.TUI,
	}
}
