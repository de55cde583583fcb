package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/goldium-labs/goldium/client"
	"github.com/urfave/cli/v2"
)

func balanceCommand() *cli.Command {
	return &cli.Command{
		Name:      "balance",
		Usage:     "Show the resolved SOL and GOLD balances for a wallet",
		ArgsUsage: "WALLET_ADDRESS",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Aliases: []string{"s"},
				Value:   "http://localhost:8080",
				Usage:   "HTTP server URL",
				EnvVars: []string{"GOLDIUM_SERVER_URL"},
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output as JSON",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("wallet address is required")
			}

			address := c.Args().Get(0)
			cl := client.NewClient(c.String("server"), nil, errorLogger())

			balances, err := cl.Balance(context.Background(), address)
			if err != nil {
				return fmt.Errorf("failed to fetch balance: %w", err)
			}

			if c.Bool("json") {
				data, err := json.MarshalIndent(balances, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal balances: %w", err)
				}
				fmt.Println(string(data))
				return nil
			}

			fmt.Printf("Wallet: %s\n", balances.Address)
			fmt.Printf("  SOL:  %g\n", balances.Balances["SOL"])
			fmt.Printf("  GOLD: %g\n", balances.Balances["GOLD"])
			if balances.Wallet.Connected {
				fmt.Printf("  External wallet: connected (%s)\n", balances.Wallet.Source)
			} else {
				fmt.Printf("  External wallet: not connected\n")
			}
			return nil
		},
	}
}
