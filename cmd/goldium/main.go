package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	app := &cli.App{
		Name:  "goldium",
		Usage: "GOLDIUM transaction tracking and balance service CLI",
		Description: `A command-line tool for managing and debugging the goldium service.

Use this CLI to track transactions, inspect wallet history, check resolved
balances, and stream live transaction events.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Commands: []*cli.Command{
			// Transaction tracking commands (HTTP API)
			{
				Name:    "tx",
				Aliases: []string{"transactions"},
				Usage:   "Transaction tracking commands",
				Subcommands: []*cli.Command{
					txListCommand(),
					txTrackCommand(),
					txUpdateStatusCommand(),
					txAwaitCommand(),
				},
			},
			// Balance resolution command
			balanceCommand(),
			// NATS transaction streaming commands
			{
				Name:  "nats",
				Usage: "NATS transaction streaming commands",
				Subcommands: []*cli.Command{
					subscribeCommand(),
				},
			},
			// SSE streaming commands
			sseCommands(),
			// Server utility commands
			{
				Name:  "server",
				Usage: "Server utility commands",
				Subcommands: []*cli.Command{
					healthCommand(),
					versionCommand(),
				},
			},
		},
		// Global flags available to all commands
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server-url",
				Usage:   "Server URL for health checks",
				EnvVars: []string{"SERVER_URL"},
				Value:   "http://localhost:8080",
			},
			&cli.StringFlag{
				Name:    "nats-url",
				Usage:   "NATS server URL",
				EnvVars: []string{"NATS_URL"},
				Value:   "nats://localhost:4222",
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output in JSON format",
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
