package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/encore/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := NewRunner(RunnerOpts{Logger: logger})

	app := rootCommand(runner)
	err := app.Run(ctx, os.Args)
	if cerr := runner.Close(); cerr != nil {
		logger.Warn("shutdown", "error", cerr)
	}
	if err != nil {
		logger.Fatalf("application error: %v", err)
	}
}

func rootCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "encore",
		Usage:   "A terminal client for Spotify: library, playlists, search and playback",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Sources: cli.EnvVars("ENCORE_CONFIG"),
			},
		},
		Commands: r.register(),
	}
}
